package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/repos"
	"github.com/relicai/relic-backend/internal/types"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relic_test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
		&types.Artifact{},
		&types.ArtifactImage{},
		&types.Model3D{},
		&types.InfoCard{},
		&types.ColorVariant{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

type testEnv struct {
	db        *gorm.DB
	store     ArtifactStoreService
	export    ExportService
	artifacts repos.ArtifactRepo
	images    repos.ImageRepo
	models    repos.ModelRepo
	cards     repos.InfoCardRepo
	variants  repos.ColorVariantRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := newTestLogger()
	gdb := newTestDB(t)
	artifactRepo := repos.NewArtifactRepo(gdb, log)
	imageRepo := repos.NewImageRepo(gdb, log)
	modelRepo := repos.NewModelRepo(gdb, log)
	infoCardRepo := repos.NewInfoCardRepo(gdb, log)
	variantRepo := repos.NewColorVariantRepo(gdb, log)
	thumbnails := NewThumbnailService(log)
	return &testEnv{
		db:        gdb,
		store:     NewArtifactStoreService(gdb, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo, thumbnails),
		export:    NewExportService(gdb, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo),
		artifacts: artifactRepo,
		images:    imageRepo,
		models:    modelRepo,
		cards:     infoCardRepo,
		variants:  variantRepo,
	}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}
