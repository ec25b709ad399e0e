package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/services"
	"github.com/relicai/relic-backend/internal/types"
)

// AIHandler exposes the three proxy endpoints the capture app calls. The
// response envelope keeps the original {success, error} contract; nothing is
// persisted here, the app writes results back through the store endpoints.
type AIHandler struct {
	log          *logger.Logger
	reconstruct  services.ReconstructionService
	colorization services.ColorizationService
	infoCardGen  services.InfoCardGenService
}

func NewAIHandler(
	log *logger.Logger,
	reconstruct services.ReconstructionService,
	colorization services.ColorizationService,
	infoCardGen services.InfoCardGenService,
) *AIHandler {
	return &AIHandler{
		log:          log.With("handler", "AIHandler"),
		reconstruct:  reconstruct,
		colorization: colorization,
		infoCardGen:  infoCardGen,
	}
}

func respondAIError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		status = ae.Status
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// POST /api/ai/reconstruct-3d
func (h *AIHandler) Reconstruct3D(c *gin.Context) {
	var req services.ReconstructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	result, err := h.reconstruct.Reconstruct(c.Request.Context(), req)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"modelBase64": result.ModelBase64,
		"format":      result.Format,
	})
}

// POST /api/ai/generate-info-card
func (h *AIHandler) GenerateInfoCard(c *gin.Context) {
	var req struct {
		ImageBase64 string                 `json:"imageBase64"`
		Metadata    types.ArtifactMetadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	card, err := h.infoCardGen.Generate(c.Request.Context(), req.ImageBase64, req.Metadata)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"infoCard": card,
	})
}

// POST /api/ai/colorize
func (h *AIHandler) Colorize(c *gin.Context) {
	var req services.ColorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondAIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	result, err := h.colorization.Colorize(c.Request.Context(), req)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"colorizedImageBase64": result.ColorizedImageBase64,
		"prompt":               result.Prompt,
		"aiModel":              h.colorization.ModelName(),
	})
}
