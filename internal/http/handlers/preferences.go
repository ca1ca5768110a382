package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/services"
)

type PreferenceHandler struct {
	preferences services.PreferenceService
}

func NewPreferenceHandler(preferences services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences}
}

// GET /api/preferences
func (h *PreferenceHandler) List(c *gin.Context) {
	prefs, err := h.preferences.List(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "list_preferences_failed")
		return
	}
	response.RespondOK(c, gin.H{"preferences": prefs})
}

type savePreferencesRequest struct {
	Preferences []services.PreferenceInput `json:"preferences"`
}

// PUT /api/preferences
func (h *PreferenceHandler) Save(c *gin.Context) {
	var req savePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	prefs, err := h.preferences.Save(c.Request.Context(), req.Preferences)
	if err != nil {
		response.RespondAPIError(c, err, "save_preferences_failed")
		return
	}
	response.RespondOK(c, gin.H{"preferences": prefs})
}

// POST /api/preferences/reset
func (h *PreferenceHandler) Reset(c *gin.Context) {
	prefs, err := h.preferences.Reset(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "reset_preferences_failed")
		return
	}
	response.RespondOK(c, gin.H{"preferences": prefs})
}
