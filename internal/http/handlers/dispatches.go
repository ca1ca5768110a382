package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/services"
)

type DispatchHandler struct {
	dispatches services.DispatchService
}

func NewDispatchHandler(dispatches services.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatches: dispatches}
}

// GET /api/dispatches?status=dead
func (h *DispatchHandler) List(c *gin.Context) {
	status := types.DispatchStatus(strings.TrimSpace(c.Query("status")))
	rows, err := h.dispatches.List(c.Request.Context(), status, intQuery(c, "limit", 100, 500))
	if err != nil {
		response.RespondAPIError(c, err, "list_dispatches_failed")
		return
	}
	response.RespondOK(c, gin.H{"dispatches": rows})
}

// POST /api/dispatches/:id/retry
func (h *DispatchHandler) Retry(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_dispatch_id", err)
		return
	}
	intent, err := h.dispatches.Retry(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "retry_failed")
		return
	}
	response.RespondOK(c, gin.H{"dispatch": intent})
}
