package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/events streams every triage event.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	h.serve(c, realtime.ChannelAll)
}

// GET /api/applications/:id/events streams one application's events.
func (h *RealtimeHandler) ApplicationEvents(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	h.serve(c, realtime.ApplicationChannel(id))
}

func (h *RealtimeHandler) serve(c *gin.Context, channel string) {
	client := h.hub.NewClient()
	h.hub.Subscribe(client, channel)
	h.log.Debug("SSE stream open", "client_id", client.ID, "channel", channel)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "client_id", client.ID)
}
