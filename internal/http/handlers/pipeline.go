package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/services"
)

// PipelineHandler serves the root-level endpoints the dashboard and the
// processing pipeline call to move an application forward.
type PipelineHandler struct {
	log       *logger.Logger
	lifecycle services.LifecycleService
}

func NewPipelineHandler(log *logger.Logger, lifecycle services.LifecycleService) *PipelineHandler {
	return &PipelineHandler{
		log:       log.With("handler", "PipelineHandler"),
		lifecycle: lifecycle,
	}
}

type applicationRequest struct {
	ApplicationID  string `json:"application_id"`
	PdfStoragePath string `json:"pdf_storage_path"`
	FilePath       string `json:"file_path"`
	TestMode       bool   `json:"test_mode"`
}

func (r applicationRequest) id() (uuid.UUID, error) {
	raw := strings.TrimSpace(r.ApplicationID)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func bindApplicationRequest(c *gin.Context) (applicationRequest, uuid.UUID, bool) {
	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return req, uuid.Nil, false
	}
	id, err := req.id()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return req, uuid.Nil, false
	}
	return req, id, true
}

// POST /deep-analysis
func (h *PipelineHandler) DeepAnalysis(c *gin.Context) {
	_, id, ok := bindApplicationRequest(c)
	if !ok {
		return
	}
	if id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "missing_application_id", errors.New("Application ID is required"))
		return
	}
	res, err := h.lifecycle.StartDeepAnalysis(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "deep_analysis_failed")
		return
	}
	response.RespondAccepted(c, deepAnalysisAck(res))
}

// POST /process-research-paper
func (h *PipelineHandler) ProcessResearchPaper(c *gin.Context) {
	req, id, ok := bindApplicationRequest(c)
	if !ok {
		return
	}
	res, err := h.lifecycle.StartProcessing(c.Request.Context(), services.ProcessInput{
		ApplicationID: id,
		FilePath:      req.FilePath,
		TestMode:      req.TestMode,
	})
	if err != nil {
		response.RespondAPIError(c, err, "process_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"success":        true,
		"message":        "Research paper processing initiated",
		"webhook_queued": true,
		"dispatch_id":    res.Dispatch.ID,
	})
}

// POST /deep-analysis-webhook
func (h *PipelineHandler) DeepAnalysisWebhook(c *gin.Context) {
	req, id, ok := bindApplicationRequest(c)
	if !ok {
		return
	}
	res, err := h.lifecycle.RelayDeepAnalysis(c.Request.Context(), services.RelayInput{
		ApplicationID:  id,
		PdfStoragePath: req.PdfStoragePath,
	})
	if err != nil {
		response.RespondAPIError(c, err, "relay_failed")
		return
	}
	if !res.Success {
		c.JSON(http.StatusBadGateway, gin.H{
			"success":        false,
			"message":        "Failed to trigger deep analysis workflow",
			"application_id": res.ApplicationID,
			"status_code":    res.StatusCode,
		})
		return
	}
	response.RespondOK(c, gin.H{
		"success":        true,
		"message":        "Deep analysis started successfully",
		"application_id": res.ApplicationID,
	})
}
