package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/services"
)

const maxCallbackBytes = 4 << 20

type IngestionHandler struct {
	log         *logger.Logger
	ingestion   services.IngestionService
	preferences services.PreferenceService
}

func NewIngestionHandler(log *logger.Logger, ingestion services.IngestionService, preferences services.PreferenceService) *IngestionHandler {
	return &IngestionHandler{
		log:         log.With("handler", "IngestionHandler"),
		ingestion:   ingestion,
		preferences: preferences,
	}
}

// POST /n8n-callback
func (h *IngestionHandler) Callback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	payload, err := h.ingestion.DecodeCallback(raw)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_payload")
		return
	}
	weights, err := h.preferences.Snapshot(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "preferences_unavailable")
		return
	}
	res, err := h.ingestion.IngestBatch(c.Request.Context(), payload, weights)
	if err != nil {
		response.RespondAPIError(c, err, "callback_failed")
		return
	}
	response.RespondOK(c, res)
}

// POST /insert-criteria-score
func (h *IngestionHandler) InsertScore(c *gin.Context) {
	var in services.ScoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.ingestion.InsertScore(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err, "insert_failed")
		return
	}
	response.RespondCreated(c, gin.H{
		"success": true,
		"data":    row,
		"message": "Criteria score inserted successfully",
	})
}
