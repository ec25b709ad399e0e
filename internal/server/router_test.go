package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relicai/relic-backend/internal/handlers"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/repos"
	"github.com/relicai/relic-backend/internal/services"
	"github.com/relicai/relic-backend/internal/types"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	path := filepath.Join(t.TempDir(), "router_test.db")
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

	artifactRepo := repos.NewArtifactRepo(gdb, log)
	imageRepo := repos.NewImageRepo(gdb, log)
	modelRepo := repos.NewModelRepo(gdb, log)
	infoCardRepo := repos.NewInfoCardRepo(gdb, log)
	variantRepo := repos.NewColorVariantRepo(gdb, log)
	thumbnails := services.NewThumbnailService(log)
	store := services.NewArtifactStoreService(gdb, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo, thumbnails)
	export := services.NewExportService(gdb, log, artifactRepo, imageRepo, modelRepo, infoCardRepo, variantRepo)

	t.Setenv("RECONSTRUCT_3D_URL", "")
	t.Setenv("COLORIZE_URL", "")
	t.Setenv("COLOR_SCHEMES_YAML_PATH", "")
	t.Setenv("GROQ_API_KEY", "")

	return NewRouter(RouterConfig{
		Log:             log,
		ArtifactHandler: handlers.NewArtifactHandler(log, store),
		AIHandler: handlers.NewAIHandler(log,
			services.NewReconstructionService(log),
			services.NewColorizationService(log),
			services.NewInfoCardGenService(log)),
		ExportHandler: handlers.NewExportHandler(log, export),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestArtifactEndpointsLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// Create
	rec := doJSON(t, router, http.MethodPost, "/api/artifacts", map[string]any{
		"metadata": map[string]any{"name": "Bronze Fibula", "siteName": "Vindolanda"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created types.Artifact
	decodeBody(t, rec, &created)
	if created.ID == uuid.Nil {
		t.Fatalf("create returned nil id")
	}
	if created.Status != types.StatusDraft {
		t.Fatalf("status = %q, want draft", created.Status)
	}

	base := "/api/artifacts/" + created.ID.String()

	// Get
	rec = doJSON(t, router, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Patch status
	rec = doJSON(t, router, http.MethodPatch, base, map[string]any{"status": "images-captured"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d body = %s", rec.Code, rec.Body.String())
	}
	var updated types.Artifact
	decodeBody(t, rec, &updated)
	if updated.Status != types.StatusImagesCaptured {
		t.Fatalf("patched status = %q", updated.Status)
	}

	// Unknown status label is rejected
	rec = doJSON(t, router, http.MethodPatch, base, map[string]any{"status": "finished"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status patch = %d", rec.Code)
	}

	// Add image; []byte binds as base64
	rec = doJSON(t, router, http.MethodPost, base+"/images", map[string]any{
		"blob":  base64.StdEncoding.EncodeToString(testPNG(t)),
		"angle": "front",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add image status = %d body = %s", rec.Code, rec.Body.String())
	}
	var image types.ArtifactImage
	decodeBody(t, rec, &image)

	rec = doJSON(t, router, http.MethodGet, base+"/images", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list images status = %d", rec.Code)
	}
	var images []types.ArtifactImage
	decodeBody(t, rec, &images)
	if len(images) != 1 || images[0].ID != image.ID {
		t.Fatalf("list images = %+v", images)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/images/"+image.ID.String()+"/blob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("image blob status = %d", rec.Code)
	}
	// Stored bytes are PNG, the response must say so rather than assume jpeg.
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("image blob content type = %q", ct)
	}

	// First image becomes the thumbnail
	rec = doJSON(t, router, http.MethodGet, base+"/thumbnail", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("thumbnail status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("thumbnail content type = %q", ct)
	}

	// Save model
	rec = doJSON(t, router, http.MethodPost, base+"/model", map[string]any{
		"blob":   base64.StdEncoding.EncodeToString([]byte("glTF-binary")),
		"format": "glb",
		"source": "3d-single",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save model status = %d body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, base+"/model/blob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("model blob status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "model/gltf-binary" {
		t.Fatalf("model content type = %q", ct)
	}

	// Info card without disclaimer is refused before anything persists
	rec = doJSON(t, router, http.MethodPost, base+"/info-card", map[string]any{
		"material": "Bronze",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("card without disclaimer = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, base+"/info-card", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("card should not exist, status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/info-card", map[string]any{
		"material":   "Bronze",
		"disclaimer": services.Disclaimer,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save card status = %d body = %s", rec.Code, rec.Body.String())
	}
	var card types.InfoCard
	decodeBody(t, rec, &card)

	rec = doJSON(t, router, http.MethodPatch, "/api/info-cards/"+card.ID.String(), map[string]any{
		"material": "Tinned bronze",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch card status = %d body = %s", rec.Code, rec.Body.String())
	}
	var patched types.InfoCard
	decodeBody(t, rec, &patched)
	if patched.Material != "Tinned bronze" || !patched.IsHumanEdited {
		t.Fatalf("patched card = %+v", patched)
	}

	// Delete artifact cascades; children become 404
	rec = doJSON(t, router, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted artifact get = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/images/"+image.ID.String()+"/blob", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cascaded image get = %d", rec.Code)
	}
}

func TestInvalidIDIsRejected(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/artifacts/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImageOnUnknownArtifactIsUnprocessable(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/artifacts/"+uuid.NewString()+"/images", map[string]any{
		"blob":  base64.StdEncoding.EncodeToString([]byte("img")),
		"angle": "front",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestAIEndpointsUnconfigured(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/ai/reconstruct-3d", map[string]any{"imageBase64": "aGk="})
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("reconstruct status = %d body = %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Success || envelope.Error == "" {
		t.Fatalf("envelope = %+v", envelope)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/ai/colorize", map[string]any{
		"imageBase64": "aGk=",
		"colorScheme": "roman",
	})
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("colorize status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestExportAndClear(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/artifacts", map[string]any{
		"metadata": map[string]any{"name": "Amphora"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	var bundle types.ExportBundle
	decodeBody(t, rec, &bundle)
	if len(bundle.Artifacts) != 1 {
		t.Fatalf("export artifacts = %d, want 1", len(bundle.Artifacts))
	}

	rec = doJSON(t, router, http.MethodPost, "/api/store/clear", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	bundle = types.ExportBundle{}
	decodeBody(t, rec, &bundle)
	if len(bundle.Artifacts) != 0 {
		t.Fatalf("export after clear = %d artifacts", len(bundle.Artifacts))
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	// Smallest valid PNG: 1x1 opaque pixel.
	const b64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode test png: %v", err)
	}
	return raw
}
