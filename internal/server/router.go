package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/relicai/relic-backend/internal/handlers"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/middleware"
	"github.com/relicai/relic-backend/internal/utils"
)

type RouterConfig struct {
	Log             *logger.Logger
	ArtifactHandler *handlers.ArtifactHandler
	AIHandler       *handlers.AIHandler
	ExportHandler   *handlers.ExportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))
	router.Use(otelgin.Middleware("relic-backend"))

	// Cors
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000", cfg.Log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Artifacts
		api.POST("/artifacts", cfg.ArtifactHandler.CreateArtifact)
		api.GET("/artifacts", cfg.ArtifactHandler.ListArtifacts)
		api.GET("/artifacts/:id", cfg.ArtifactHandler.GetArtifact)
		api.PATCH("/artifacts/:id", cfg.ArtifactHandler.UpdateArtifact)
		api.DELETE("/artifacts/:id", cfg.ArtifactHandler.DeleteArtifact)
		api.GET("/artifacts/:id/thumbnail", cfg.ArtifactHandler.GetThumbnail)

		// Images
		api.POST("/artifacts/:id/images", cfg.ArtifactHandler.AddImage)
		api.GET("/artifacts/:id/images", cfg.ArtifactHandler.ListImages)
		api.GET("/images/:id/blob", cfg.ArtifactHandler.GetImageBlob)
		api.DELETE("/images/:id", cfg.ArtifactHandler.DeleteImage)

		// Color variants
		api.POST("/artifacts/:id/color-variants", cfg.ArtifactHandler.AddColorVariant)
		api.GET("/artifacts/:id/color-variants", cfg.ArtifactHandler.ListColorVariants)
		api.GET("/color-variants/:id/blob", cfg.ArtifactHandler.GetColorVariantBlob)
		api.DELETE("/color-variants/:id", cfg.ArtifactHandler.DeleteColorVariant)

		// 3D model
		api.POST("/artifacts/:id/model", cfg.ArtifactHandler.SaveModel)
		api.GET("/artifacts/:id/model", cfg.ArtifactHandler.GetModel)
		api.GET("/artifacts/:id/model/blob", cfg.ArtifactHandler.GetModelBlob)

		// Info card
		api.POST("/artifacts/:id/info-card", cfg.ArtifactHandler.SaveInfoCard)
		api.GET("/artifacts/:id/info-card", cfg.ArtifactHandler.GetInfoCard)
		api.PATCH("/info-cards/:id", cfg.ArtifactHandler.UpdateInfoCard)

		// AI proxies
		api.POST("/ai/reconstruct-3d", cfg.AIHandler.Reconstruct3D)
		api.POST("/ai/generate-info-card", cfg.AIHandler.GenerateInfoCard)
		api.POST("/ai/colorize", cfg.AIHandler.Colorize)

		// Export / reset
		api.GET("/export", cfg.ExportHandler.ExportAll)
		api.POST("/store/clear", cfg.ExportHandler.ClearAll)
	}

	return router
}
