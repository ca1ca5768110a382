package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/services"
)

const maxUploadBytes = 50 << 20

type ApplicationHandler struct {
	log       *logger.Logger
	lifecycle services.LifecycleService
}

func NewApplicationHandler(log *logger.Logger, lifecycle services.LifecycleService) *ApplicationHandler {
	return &ApplicationHandler{
		log:       log.With("handler", "ApplicationHandler"),
		lifecycle: lifecycle,
	}
}

// POST /api/applications
func (h *ApplicationHandler) Create(c *gin.Context) {
	var meta types.ApplicationMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	app, err := h.lifecycle.CreateApplication(c.Request.Context(), meta)
	if err != nil {
		response.RespondAPIError(c, err, "create_application_failed")
		return
	}
	response.RespondCreated(c, gin.H{"application": app})
}

func formValue(form *multipart.Form, key string) string {
	if form == nil {
		return ""
	}
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func metaFromForm(form *multipart.Form) (types.ApplicationMeta, error) {
	meta := types.ApplicationMeta{
		ResearchTitle:   formValue(form, "research_title"),
		Author:          formValue(form, "author"),
		Institution:     formValue(form, "institution"),
		ResearchArea:    formValue(form, "research_area"),
		ResearchDomain:  formValue(form, "research_domain"),
		PublicationDate: formValue(form, "publication_date"),
		Abstract:        formValue(form, "abstract"),
		ContactEmail:    formValue(form, "contact_email"),
		TeamName:        formValue(form, "team_name"),
		Source:          formValue(form, "source"),
	}
	if raw := formValue(form, "funding_requested"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return meta, errors.New("funding_requested must be a number")
		}
		meta.FundingRequested = &f
	}
	return meta, nil
}

// POST /api/applications/upload (multipart: file + metadata fields)
func (h *ApplicationHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	files := form.File["file"]
	if len(files) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_file", errors.New("a PDF file is required"))
		return
	}
	fh := files[0]

	// Sniff
	sniff, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	buf := make([]byte, 512)
	n, _ := sniff.Read(buf)
	_ = sniff.Close()
	if detected := http.DetectContentType(buf[:n]); detected != "application/pdf" {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_type", errors.New("only PDF files are accepted"))
		return
	}

	meta, err := metaFromForm(form)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.UploadInput{
		Meta:     meta,
		Filename: fh.Filename,
		TestMode: boolValue(formValue(form, "test_mode")),
	}
	if raw := formValue(form, "application_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
			return
		}
		in.ApplicationID = &id
	}

	file, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()
	in.File = file

	res, err := h.lifecycle.UploadPaper(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err, "upload_failed")
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/applications?status=
func (h *ApplicationHandler) List(c *gin.Context) {
	filter := repos.ApplicationFilter{
		Status: types.ApplicationStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  intQuery(c, "limit", 100, 500),
		Offset: intQuery(c, "offset", 0, 0),
	}
	apps, err := h.lifecycle.ListApplications(c.Request.Context(), filter)
	if err != nil {
		response.RespondAPIError(c, err, "list_applications_failed")
		return
	}
	response.RespondOK(c, gin.H{"applications": apps})
}

// GET /api/applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	app, err := h.lifecycle.GetApplication(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_application_failed")
		return
	}
	response.RespondOK(c, gin.H{"application": app})
}

// GET /api/applications/:id/status
func (h *ApplicationHandler) GetStatus(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	app, err := h.lifecycle.GetApplication(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_application_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"id":               app.ID,
		"status":           app.Status,
		"pdf_storage_path": app.PdfStoragePath,
		"updated_at":       app.UpdatedAt,
	})
}

type setStatusRequest struct {
	Status types.ApplicationStatus `json:"status"`
	// Actor is staff unless the processing pipeline reports completion.
	Actor types.Actor `json:"actor"`
}

// POST /api/applications/:id/status
func (h *ApplicationHandler) SetStatus(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	switch req.Actor {
	case "":
		req.Actor = types.ActorStaff
	case types.ActorStaff, types.ActorPipeline:
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_actor", errors.New("actor must be staff or pipeline"))
		return
	}
	app, err := h.lifecycle.SetStatus(c.Request.Context(), id, req.Status, req.Actor)
	if err != nil {
		response.RespondAPIError(c, err, "set_status_failed")
		return
	}
	response.RespondOK(c, gin.H{"application": app})
}

// POST /api/applications/:id/deep-analysis
func (h *ApplicationHandler) StartDeepAnalysis(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	res, err := h.lifecycle.StartDeepAnalysis(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "deep_analysis_failed")
		return
	}
	response.RespondAccepted(c, deepAnalysisAck(res))
}

func deepAnalysisAck(res *services.DeepAnalysisResult) gin.H {
	return gin.H{
		"success":        true,
		"message":        "Deep analysis initiated successfully",
		"application_id": res.Application.ID,
		"potential_id":   res.Potential.ID,
		"dispatch_id":    res.Dispatch.ID,
	}
}

// GET /api/applications/:id/pdf-url
func (h *ApplicationHandler) PaperURL(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_application_id", err)
		return
	}
	u, expires, err := h.lifecycle.PaperURL(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "pdf_url_failed")
		return
	}
	response.RespondOK(c, gin.H{"url": u, "expires_at": expires.Format(time.RFC3339)})
}
