package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/services"
	"github.com/relicai/relic-backend/internal/types"
)

type ArtifactHandler struct {
	log   *logger.Logger
	store services.ArtifactStoreService
}

func NewArtifactHandler(log *logger.Logger, store services.ArtifactStoreService) *ArtifactHandler {
	return &ArtifactHandler{
		log:   log.With("handler", "ArtifactHandler"),
		store: store,
	}
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondErr(c, apierr.Validationf("invalid id %q", c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/artifacts
func (h *ArtifactHandler) CreateArtifact(c *gin.Context) {
	var req struct {
		ID       uuid.UUID              `json:"id"`
		Status   types.ArtifactStatus   `json:"status"`
		Metadata types.ArtifactMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	artifact, err := h.store.CreateArtifact(c.Request.Context(), services.CreateArtifactInput{
		ID:       req.ID,
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, artifact)
}

// GET /api/artifacts
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	artifacts, err := h.store.ListArtifacts(c.Request.Context())
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, artifacts)
}

// GET /api/artifacts/:id
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	artifact, err := h.store.GetArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if artifact == nil {
		RespondErr(c, apierr.NotFoundf("artifact %s not found", id))
		return
	}
	RespondOK(c, artifact)
}

// PATCH /api/artifacts/:id
func (h *ArtifactHandler) UpdateArtifact(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status   *types.ArtifactStatus   `json:"status"`
		Metadata *types.ArtifactMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	artifact, err := h.store.UpdateArtifact(c.Request.Context(), id, services.ArtifactUpdate{
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, artifact)
}

// DELETE /api/artifacts/:id
func (h *ArtifactHandler) DeleteArtifact(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteArtifact(c.Request.Context(), id); err != nil {
		RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/artifacts/:id/thumbnail
func (h *ArtifactHandler) GetThumbnail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	artifact, err := h.store.GetArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if artifact == nil || len(artifact.ThumbnailBlob) == 0 {
		RespondErr(c, apierr.NotFoundf("no thumbnail for artifact %s", id))
		return
	}
	c.Data(http.StatusOK, "image/jpeg", artifact.ThumbnailBlob)
}

// POST /api/artifacts/:id/images
func (h *ArtifactHandler) AddImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Blob  []byte           `json:"blob"`
		Angle types.ImageAngle `json:"angle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	image, err := h.store.AddImage(c.Request.Context(), services.AddImageInput{
		ArtifactID: id,
		Blob:       req.Blob,
		Angle:      req.Angle,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, image)
}

// GET /api/artifacts/:id/images
func (h *ArtifactHandler) ListImages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	images, err := h.store.GetImagesForArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, images)
}

// GET /api/images/:id/blob
func (h *ArtifactHandler) GetImageBlob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	image, err := h.store.GetImage(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if image == nil {
		RespondErr(c, apierr.NotFoundf("image %s not found", id))
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(image.Blob), image.Blob)
}

// DELETE /api/images/:id
func (h *ArtifactHandler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteImage(c.Request.Context(), id); err != nil {
		RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/artifacts/:id/color-variants
func (h *ArtifactHandler) AddColorVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Blob        []byte            `json:"blob"`
		ColorScheme types.ColorScheme `json:"colorScheme"`
		Prompt      string            `json:"prompt"`
		AIModel     string            `json:"aiModel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	variant, err := h.store.AddColorVariant(c.Request.Context(), services.AddColorVariantInput{
		ArtifactID:  id,
		Blob:        req.Blob,
		ColorScheme: req.ColorScheme,
		Prompt:      req.Prompt,
		AIModel:     req.AIModel,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, variant)
}

// GET /api/artifacts/:id/color-variants
func (h *ArtifactHandler) ListColorVariants(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	variants, err := h.store.GetColorVariantsForArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, variants)
}

// GET /api/color-variants/:id/blob
func (h *ArtifactHandler) GetColorVariantBlob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	variant, err := h.store.GetColorVariant(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if variant == nil {
		RespondErr(c, apierr.NotFoundf("color variant %s not found", id))
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(variant.Blob), variant.Blob)
}

// DELETE /api/color-variants/:id
func (h *ArtifactHandler) DeleteColorVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteColorVariant(c.Request.Context(), id); err != nil {
		RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/artifacts/:id/model
func (h *ArtifactHandler) SaveModel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Blob     []byte              `json:"blob"`
		Format   types.ModelFormat   `json:"format"`
		Source   types.ModelSource   `json:"source"`
		Metadata types.ModelMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	model, err := h.store.SaveModel(c.Request.Context(), services.SaveModelInput{
		ArtifactID: id,
		Blob:       req.Blob,
		Format:     req.Format,
		Source:     req.Source,
		Metadata:   req.Metadata,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, model)
}

// GET /api/artifacts/:id/model
func (h *ArtifactHandler) GetModel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	model, err := h.store.GetModelForArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if model == nil {
		RespondErr(c, apierr.NotFoundf("no model for artifact %s", id))
		return
	}
	RespondOK(c, model)
}

// GET /api/artifacts/:id/model/blob
func (h *ArtifactHandler) GetModelBlob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	model, err := h.store.GetModelForArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if model == nil {
		RespondErr(c, apierr.NotFoundf("no model for artifact %s", id))
		return
	}
	contentType := "model/gltf-binary"
	if model.Format == types.FormatOBJ {
		contentType = "text/plain"
	} else if model.Format == types.FormatGLTF {
		contentType = "model/gltf+json"
	}
	c.Data(http.StatusOK, contentType, model.Blob)
}

// POST /api/artifacts/:id/info-card
func (h *ArtifactHandler) SaveInfoCard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Material          string             `json:"material"`
		EstimatedAge      types.EstimatedAge `json:"estimatedAge"`
		PossibleUse       string             `json:"possibleUse"`
		CulturalContext   string             `json:"culturalContext"`
		SimilarArtifacts  []string           `json:"similarArtifacts"`
		PreservationNotes string             `json:"preservationNotes"`
		AIModel           string             `json:"aiModel"`
		AIConfidence      float64            `json:"aiConfidence"`
		Disclaimer        string             `json:"disclaimer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	card, err := h.store.SaveInfoCard(c.Request.Context(), services.SaveInfoCardInput{
		ArtifactID:        id,
		Material:          req.Material,
		EstimatedAge:      req.EstimatedAge,
		PossibleUse:       req.PossibleUse,
		CulturalContext:   req.CulturalContext,
		SimilarArtifacts:  req.SimilarArtifacts,
		PreservationNotes: req.PreservationNotes,
		AIModel:           req.AIModel,
		AIConfidence:      req.AIConfidence,
		Disclaimer:        req.Disclaimer,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, card)
}

// GET /api/artifacts/:id/info-card
func (h *ArtifactHandler) GetInfoCard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	card, err := h.store.GetInfoCardForArtifact(c.Request.Context(), id)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if card == nil {
		RespondErr(c, apierr.NotFoundf("no info card for artifact %s", id))
		return
	}
	RespondOK(c, card)
}

// PATCH /api/info-cards/:id
func (h *ArtifactHandler) UpdateInfoCard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Material          *string             `json:"material"`
		EstimatedAge      *types.EstimatedAge `json:"estimatedAge"`
		PossibleUse       *string             `json:"possibleUse"`
		CulturalContext   *string             `json:"culturalContext"`
		SimilarArtifacts  []string            `json:"similarArtifacts"`
		PreservationNotes *string             `json:"preservationNotes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	card, err := h.store.UpdateInfoCard(c.Request.Context(), id, services.InfoCardUpdate{
		Material:          req.Material,
		EstimatedAge:      req.EstimatedAge,
		PossibleUse:       req.PossibleUse,
		CulturalContext:   req.CulturalContext,
		SimilarArtifacts:  req.SimilarArtifacts,
		PreservationNotes: req.PreservationNotes,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, card)
}
