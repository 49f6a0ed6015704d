package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/middleware"
	"github.com/campus-hq/registrar-api/internal/service"
	appErrors "github.com/campus-hq/registrar-api/pkg/errors"
	"github.com/campus-hq/registrar-api/pkg/response"
)

// TranscriptHandler exposes the transcript endpoint.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Get godoc
// @Summary Student transcript
// @Tags Transcripts
// @Produce json
// @Param id path int true "Student ID"
// @Param format query string false "Response format (json or text)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	id, err := studentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format != "json" && format != "text" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json or text"))
		return
	}
	start := time.Now()
	transcript, cacheHit, err := h.transcripts.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format == "text" {
		c.Header("Cache-Control", "no-store")
		c.String(http.StatusOK, h.transcripts.Render(transcript))
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, transcript, nil, meta)
}
