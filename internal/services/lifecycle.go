package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/repos"
	"github.com/yungbote/triage-backend/internal/dispatch"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/apierr"
	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type PaperStorage interface {
	Bucket() string
	Upload(dbc dbctx.Context, key string, file io.Reader) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type WebhookCaller interface {
	Call(ctx context.Context, target string, params url.Values) (int, error)
}

type UploadInput struct {
	// ApplicationID attaches the paper to an existing submitted application.
	ApplicationID *uuid.UUID
	Meta          types.ApplicationMeta
	Filename      string
	File          io.Reader
	TestMode      bool
}

type UploadResult struct {
	Application *types.Application    `json:"application"`
	Dispatch    *types.DispatchIntent `json:"dispatch,omitempty"`
	// ProcessingError is set when the file is stored but processing could not be queued.
	ProcessingError string `json:"processing_error,omitempty"`
}

type ProcessInput struct {
	ApplicationID uuid.UUID
	FilePath      string
	TestMode      bool
}

type ProcessResult struct {
	Application *types.Application    `json:"application"`
	Dispatch    *types.DispatchIntent `json:"dispatch"`
}

type DeepAnalysisResult struct {
	Application *types.Application    `json:"application"`
	Potential   *types.Potential      `json:"potential"`
	Dispatch    *types.DispatchIntent `json:"dispatch"`
}

type RelayInput struct {
	ApplicationID  uuid.UUID
	PdfStoragePath string
}

type RelayResult struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Success       bool      `json:"success"`
	StatusCode    int       `json:"status_code,omitempty"`
	Message       string    `json:"message"`
}

type LifecycleService interface {
	CreateApplication(ctx context.Context, meta types.ApplicationMeta) (*types.Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	ListApplications(ctx context.Context, filter repos.ApplicationFilter) ([]*types.Application, error)
	UploadPaper(ctx context.Context, in UploadInput) (*UploadResult, error)
	StartProcessing(ctx context.Context, in ProcessInput) (*ProcessResult, error)
	StartDeepAnalysis(ctx context.Context, applicationID uuid.UUID) (*DeepAnalysisResult, error)
	RelayDeepAnalysis(ctx context.Context, in RelayInput) (*RelayResult, error)
	SetStatus(ctx context.Context, id uuid.UUID, to types.ApplicationStatus, actor types.Actor) (*types.Application, error)
	PaperURL(ctx context.Context, id uuid.UUID) (string, time.Time, error)
	OnDispatchDead(ctx context.Context, intent *types.DispatchIntent)
}

type lifecycleService struct {
	db         *gorm.DB
	log        *logger.Logger
	apps       repos.ApplicationRepo
	potentials repos.PotentialRepo
	dispatches DispatchService
	store      PaperStorage
	caller     WebhookCaller
	webhooks   WebhookConfig
	notify     *StatusNotifier
}

func NewLifecycleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	apps repos.ApplicationRepo,
	potentials repos.PotentialRepo,
	dispatches DispatchService,
	store PaperStorage,
	caller WebhookCaller,
	webhooks WebhookConfig,
	notify *StatusNotifier,
) LifecycleService {
	if notify == nil {
		notify = NewStatusNotifier(nil)
	}
	return &lifecycleService{
		db:         db,
		log:        baseLog.With("service", "LifecycleService"),
		apps:       apps,
		potentials: potentials,
		dispatches: dispatches,
		store:      store,
		caller:     caller,
		webhooks:   webhooks,
		notify:     notify,
	}
}

func (s *lifecycleService) CreateApplication(ctx context.Context, meta types.ApplicationMeta) (*types.Application, error) {
	app := &types.Application{Status: types.StatusSubmitted}
	meta.Apply(app)
	if _, err := s.apps.Create(dbctx.New(ctx), app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.log.Info("application created", "application_id", app.ID)
	return app, nil
}

func (s *lifecycleService) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	app, err := s.apps.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apierr.NotFound("application_not_found", nil)
	}
	return app, nil
}

func (s *lifecycleService) ListApplications(ctx context.Context, filter repos.ApplicationFilter) ([]*types.Application, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	return s.apps.List(dbctx.New(ctx), filter)
}

func titleFromFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-4]
	}
	return base
}

// UploadPaper stores the file, records its path and starts processing. Once the
// path is recorded the upload counts as done: a failure to queue processing is
// reported in the result rather than as an error.
func (s *lifecycleService) UploadPaper(ctx context.Context, in UploadInput) (*UploadResult, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" || in.File == nil {
		return nil, apierr.Validation("missing_file", "a PDF file is required")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, apierr.Validation("invalid_file_type", "only PDF files are accepted")
	}

	app, err := s.prepareUpload(ctx, in, filename)
	if err != nil {
		return nil, err
	}

	dbc := dbctx.New(ctx)
	key := gcp.PaperKey(app.ID.String(), filename)
	if err := s.store.Upload(dbc, key, in.File); err != nil {
		if errors.Is(err, gcp.ErrObjectExists) {
			return nil, apierr.Conflict("object_exists", err)
		}
		return nil, apierr.Dependency("upload_failed", err)
	}

	attached, err := s.apps.SetPdfPathIfEmpty(dbc, app.ID, key)
	if err != nil {
		return nil, fmt.Errorf("record pdf path: %w", err)
	}
	if !attached {
		return nil, apierr.Conflict("pdf_already_attached", errors.New("application already has a paper"))
	}
	app.PdfStoragePath = &key
	s.log.Info("paper uploaded", "application_id", app.ID, "key", key)

	res := &UploadResult{Application: app}
	proc, err := s.StartProcessing(ctx, ProcessInput{ApplicationID: app.ID, FilePath: key, TestMode: in.TestMode})
	if err != nil {
		s.log.Warn("processing not started after upload", "application_id", app.ID, "error", err)
		res.ProcessingError = err.Error()
		return res, nil
	}
	res.Application = proc.Application
	res.Dispatch = proc.Dispatch
	return res, nil
}

func (s *lifecycleService) prepareUpload(ctx context.Context, in UploadInput, filename string) (*types.Application, error) {
	dbc := dbctx.New(ctx)
	if in.ApplicationID == nil {
		app := &types.Application{Status: types.StatusUploaded}
		in.Meta.Apply(app)
		if strings.TrimSpace(app.ResearchTitle) == "" {
			app.ResearchTitle = titleFromFilename(filename)
		}
		if _, err := s.apps.Create(dbc, app); err != nil {
			return nil, fmt.Errorf("create application: %w", err)
		}
		return app, nil
	}

	app, err := s.apps.GetByID(dbc, *in.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apierr.NotFound("application_not_found", nil)
	}
	switch {
	case app.Status == types.StatusSubmitted:
		ok, err := s.apps.UpdateStatusIfIn(dbc, app.ID, []types.ApplicationStatus{types.StatusSubmitted}, types.StatusUploaded)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierr.Conflict("invalid_status", errors.New("application changed concurrently"))
		}
		s.notify.ApplicationStatusChanged(ctx, app.ID, app.Status, types.StatusUploaded)
		app.Status = types.StatusUploaded
	case app.Status == types.StatusUploaded && (app.PdfStoragePath == nil || *app.PdfStoragePath == ""):
		// earlier upload attempt failed before the path was recorded
	default:
		return nil, apierr.Conflict("invalid_status", fmt.Errorf("cannot upload a paper in status %s", app.Status))
	}
	return app, nil
}

func (s *lifecycleService) StartProcessing(ctx context.Context, in ProcessInput) (*ProcessResult, error) {
	if in.ApplicationID == uuid.Nil || strings.TrimSpace(in.FilePath) == "" {
		return nil, apierr.Validation("missing_fields", "application_id and file_path are required")
	}
	key := gcp.NormalizeKey(s.store.Bucket(), in.FilePath)

	var (
		res  ProcessResult
		from types.ApplicationStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		app, err := s.apps.LockByID(dbc, in.ApplicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return apierr.NotFound("application_not_found", nil)
		}
		from = app.Status
		switch app.Status {
		case types.StatusUploaded:
			if err := types.CheckTransition(app.Status, types.StatusProcessing, types.ActorSystem); err != nil {
				return apierr.Conflict("invalid_status", err)
			}
			if _, err := s.apps.UpdateStatusIfIn(dbc, app.ID, []types.ApplicationStatus{types.StatusUploaded}, types.StatusProcessing); err != nil {
				return err
			}
			app.Status = types.StatusProcessing
		case types.StatusProcessing:
			// re-dispatch without a transition
		default:
			return apierr.Conflict("invalid_status", fmt.Errorf("cannot start processing in status %s", app.Status))
		}
		if app.PdfStoragePath == nil || *app.PdfStoragePath == "" {
			if _, err := s.apps.SetPdfPathIfEmpty(dbc, app.ID, key); err != nil {
				return err
			}
			app.PdfStoragePath = &key
		}
		intent, err := s.dispatches.EnqueueProcessPaper(dbc, app, key, in.FilePath, in.TestMode)
		if err != nil {
			return err
		}
		res.Application = app
		res.Dispatch = intent
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from != res.Application.Status {
		s.notify.ApplicationStatusChanged(ctx, res.Application.ID, from, res.Application.Status)
	}
	s.log.Info("processing queued", "application_id", res.Application.ID, "dispatch_id", res.Dispatch.ID, "test_mode", in.TestMode)
	return &res, nil
}

// StartDeepAnalysis is only valid from processed, whoever calls it.
func (s *lifecycleService) StartDeepAnalysis(ctx context.Context, applicationID uuid.UUID) (*DeepAnalysisResult, error) {
	if applicationID == uuid.Nil {
		return nil, apierr.Validation("missing_application_id", "application_id is required")
	}
	var (
		res  DeepAnalysisResult
		from types.ApplicationStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		app, err := s.apps.LockByID(dbc, applicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return apierr.NotFound("application_not_found", nil)
		}
		from = app.Status
		if err := types.CheckTransition(app.Status, types.StatusUnderReview, types.ActorSystem); err != nil {
			return apierr.Conflict("invalid_status",
				fmt.Errorf("application must be in processed status to start deep analysis (current: %s)", app.Status))
		}
		if app.PdfStoragePath == nil || *app.PdfStoragePath == "" {
			return apierr.Validation("missing_pdf_storage_path", "application has no uploaded paper")
		}
		ok, err := s.apps.UpdateStatusIfIn(dbc, app.ID, []types.ApplicationStatus{types.StatusProcessed}, types.StatusUnderReview)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("invalid_status", errors.New("application changed concurrently"))
		}
		app.Status = types.StatusUnderReview

		potential, err := s.ensurePotential(dbc, app)
		if err != nil {
			return err
		}
		intent, err := s.dispatches.EnqueueDeepAnalysis(dbc, app)
		if err != nil {
			return err
		}
		res = DeepAnalysisResult{Application: app, Potential: potential, Dispatch: intent}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.ApplicationStatusChanged(ctx, applicationID, from, types.StatusUnderReview)
	s.log.Info("deep analysis queued", "application_id", applicationID, "potential_id", res.Potential.ID, "dispatch_id", res.Dispatch.ID)
	return &res, nil
}

func (s *lifecycleService) ensurePotential(dbc dbctx.Context, app *types.Application) (*types.Potential, error) {
	existing, err := s.potentials.ListByApplicationID(dbc, app.ID)
	if err != nil {
		return nil, err
	}
	switch len(existing) {
	case 0:
		appID := app.ID
		p, err := s.potentials.Create(dbc, &types.Potential{
			ApplicationID: &appID,
			Status:        types.PotentialProcessing,
			ProgressStage: types.StageAnalysis,
		})
		if err != nil {
			if repos.IsUniqueViolation(err) {
				return nil, apierr.Conflict("potential_exists", err)
			}
			return nil, err
		}
		return p, nil
	case 1:
		p := existing[0]
		if p.ProgressStage < types.StageAnalysis {
			if err := s.potentials.UpdateFields(dbc, p.ID, map[string]interface{}{"progress_stage": types.StageAnalysis}); err != nil {
				return nil, err
			}
			p.ProgressStage = types.StageAnalysis
		}
		return p, nil
	default:
		return nil, apierr.Conflict("ambiguous_potential", apierr.ErrAmbiguous)
	}
}

// RelayDeepAnalysis calls the deep analysis webhook synchronously and leaves the
// application status alone. A non-2xx answer is a soft failure in the result.
func (s *lifecycleService) RelayDeepAnalysis(ctx context.Context, in RelayInput) (*RelayResult, error) {
	if in.ApplicationID == uuid.Nil || strings.TrimSpace(in.PdfStoragePath) == "" {
		return nil, apierr.Validation("missing_fields", "Missing application_id or pdf_storage_path")
	}
	target := strings.TrimSpace(s.webhooks.DeepAnalysisURL)
	if target == "" {
		return nil, apierr.New(http.StatusServiceUnavailable, "webhook_not_configured", errWebhookNotConfigured)
	}
	app, err := s.GetApplication(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}
	key := gcp.NormalizeKey(s.store.Bucket(), in.PdfStoragePath)
	signed, err := s.store.SignedURL(ctx, key, DeepAnalysisURLTTL)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "sign_failed", err)
	}

	params := url.Values{}
	params.Set("application_id", app.ID.String())
	params.Set("pdf_url", signed)
	params.Set("contact_email", app.ContactEmail)
	params.Set("research_title", app.ResearchTitle)
	params.Set("institution", app.Institution)
	params.Set("timestamp", time.Now().UTC().Format(time.RFC3339))

	res := &RelayResult{ApplicationID: app.ID}
	status, err := s.caller.Call(ctx, target, params)
	res.StatusCode = status
	if err != nil {
		var se *dispatch.StatusError
		if errors.As(err, &se) {
			res.StatusCode = se.StatusCode
		}
		res.Message = err.Error()
		s.log.Warn("deep analysis relay failed", "application_id", app.ID, "status", res.StatusCode, "error", err)
		return res, nil
	}
	res.Success = true
	res.Message = "Deep analysis webhook triggered successfully"
	return res, nil
}

func (s *lifecycleService) SetStatus(ctx context.Context, id uuid.UUID, to types.ApplicationStatus, actor types.Actor) (*types.Application, error) {
	if !to.Valid() {
		return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown status %q", to))
	}
	var (
		app  *types.Application
		from types.ApplicationStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		app, err = s.apps.LockByID(dbc, id)
		if err != nil {
			return err
		}
		if app == nil {
			return apierr.NotFound("application_not_found", nil)
		}
		from = app.Status
		if err := types.CheckTransition(app.Status, to, actor); err != nil {
			return apierr.Conflict("invalid_transition", fmt.Errorf("%w: %v", apierr.ErrInvalidTransition, err))
		}
		ok, err := s.apps.UpdateStatusIfIn(dbc, id, []types.ApplicationStatus{from}, to)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("invalid_transition", errors.New("application changed concurrently"))
		}
		app.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.ApplicationStatusChanged(ctx, id, from, to)
	s.log.Info("application status changed", "application_id", id, "from", from, "to", to, "actor", actor)
	return app, nil
}

func (s *lifecycleService) PaperURL(ctx context.Context, id uuid.UUID) (string, time.Time, error) {
	app, err := s.GetApplication(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if app.PdfStoragePath == nil || *app.PdfStoragePath == "" {
		return "", time.Time{}, apierr.NotFound("pdf_not_found", errors.New("application has no uploaded paper"))
	}
	expires := time.Now().UTC().Add(DeepAnalysisURLTTL)
	u, err := s.store.SignedURL(ctx, *app.PdfStoragePath, DeepAnalysisURLTTL)
	if err != nil {
		return "", time.Time{}, apierr.New(http.StatusInternalServerError, "sign_failed", err)
	}
	return u, expires, nil
}

// OnDispatchDead records an intent that exhausted its attempts. Status is left
// alone: the pipeline may still have received the request, and its callback
// must find the application where it left it. Staff retry via the dispatch API.
func (s *lifecycleService) OnDispatchDead(ctx context.Context, intent *types.DispatchIntent) {
	s.notify.DispatchDead(ctx, intent)
	s.log.Warn("dispatch dead-lettered",
		"application_id", intent.ApplicationID,
		"dispatch_id", intent.ID,
		"kind", intent.Kind,
		"attempts", intent.Attempts,
	)
}
