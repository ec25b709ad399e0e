package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relicai/relic-backend/internal/db"
	"github.com/relicai/relic-backend/internal/handlers"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/observability"
	"github.com/relicai/relic-backend/internal/repos"
	"github.com/relicai/relic-backend/internal/server"
	"github.com/relicai/relic-backend/internal/services"
	"github.com/relicai/relic-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "relic-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("VERSION", "dev", log),
	})

	// Database
	dbService, err := db.NewDBService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.Close(); err != nil {
			log.Warn("Database close failed", "error", err)
		}
	}()
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Repos
	log.Info("Setting up repos...")
	artifactRepo := repos.NewArtifactRepo(theDB, log)
	imageRepo := repos.NewImageRepo(theDB, log)
	modelRepo := repos.NewModelRepo(theDB, log)
	infoCardRepo := repos.NewInfoCardRepo(theDB, log)
	variantRepo := repos.NewColorVariantRepo(theDB, log)

	// Services
	log.Info("Setting up services...")
	thumbnailService := services.NewThumbnailService(log)
	storeService := services.NewArtifactStoreService(theDB, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo, thumbnailService)
	exportService := services.NewExportService(theDB, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo)
	reconstructionService := services.NewReconstructionService(log)
	colorizationService := services.NewColorizationService(log)
	infoCardGenService := services.NewInfoCardGenService(log)

	// Handlers
	artifactHandler := handlers.NewArtifactHandler(log, storeService)
	aiHandler := handlers.NewAIHandler(log, reconstructionService, colorizationService, infoCardGenService)
	exportHandler := handlers.NewExportHandler(log, exportService)

	router := server.NewRouter(server.RouterConfig{
		Log:             log,
		ArtifactHandler: artifactHandler,
		AIHandler:       aiHandler,
		ExportHandler:   exportHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
