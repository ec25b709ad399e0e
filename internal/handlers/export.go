package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/services"
)

type ExportHandler struct {
	log    *logger.Logger
	export services.ExportService
}

func NewExportHandler(log *logger.Logger, export services.ExportService) *ExportHandler {
	return &ExportHandler{
		log:    log.With("handler", "ExportHandler"),
		export: export,
	}
}

// GET /api/export
func (h *ExportHandler) ExportAll(c *gin.Context) {
	bundle, err := h.export.ExportAll(c.Request.Context())
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, bundle)
}

// POST /api/store/clear
// Destructive: empties all five collections.
func (h *ExportHandler) ClearAll(c *gin.Context) {
	if err := h.export.ClearAll(c.Request.Context()); err != nil {
		RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
