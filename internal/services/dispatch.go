package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/apierr"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

const (
	ProcessPaperURLTTL = 7 * 24 * time.Hour
	DeepAnalysisURLTTL = time.Hour
)

type WebhookConfig struct {
	ProcessURL      string
	ProcessTestURL  string
	DeepAnalysisURL string
}

func (c WebhookConfig) processTarget(testMode bool) string {
	if testMode && strings.TrimSpace(c.ProcessTestURL) != "" {
		return strings.TrimSpace(c.ProcessTestURL)
	}
	return strings.TrimSpace(c.ProcessURL)
}

var errWebhookNotConfigured = errors.New("webhook target not configured")

// DispatchService writes outbox intents and exposes the dead-letter queue.
type DispatchService interface {
	EnqueueProcessPaper(dbc dbctx.Context, app *types.Application, key, originalPath string, testMode bool) (*types.DispatchIntent, error)
	EnqueueDeepAnalysis(dbc dbctx.Context, app *types.Application) (*types.DispatchIntent, error)
	List(ctx context.Context, status types.DispatchStatus, limit int) ([]*types.DispatchIntent, error)
	Retry(ctx context.Context, id uuid.UUID) (*types.DispatchIntent, error)
}

type dispatchService struct {
	db      *gorm.DB
	log     *logger.Logger
	intents repos.DispatchIntentRepo
	apps    repos.ApplicationRepo
	cfg     WebhookConfig
	bucket  string
}

func NewDispatchService(db *gorm.DB, baseLog *logger.Logger, intents repos.DispatchIntentRepo, apps repos.ApplicationRepo, cfg WebhookConfig, bucket string) DispatchService {
	return &dispatchService{
		db:      db,
		log:     baseLog.With("service", "DispatchService"),
		intents: intents,
		apps:    apps,
		cfg:     cfg,
		bucket:  bucket,
	}
}

func (s *dispatchService) EnqueueProcessPaper(dbc dbctx.Context, app *types.Application, key, originalPath string, testMode bool) (*types.DispatchIntent, error) {
	target := s.cfg.processTarget(testMode)
	if target == "" {
		return nil, apierr.New(http.StatusServiceUnavailable, "webhook_not_configured", errWebhookNotConfigured)
	}
	params := paperParams(app)
	params["file_path"] = key
	params["original_file_path"] = originalPath
	params["bucket"] = s.bucket
	if testMode {
		params["test_mode"] = "true"
	}
	return s.enqueue(dbc, types.DispatchProcessPaper, app.ID, target, key, ProcessPaperURLTTL, params)
}

func (s *dispatchService) EnqueueDeepAnalysis(dbc dbctx.Context, app *types.Application) (*types.DispatchIntent, error) {
	target := strings.TrimSpace(s.cfg.DeepAnalysisURL)
	if target == "" {
		return nil, apierr.New(http.StatusServiceUnavailable, "webhook_not_configured", errWebhookNotConfigured)
	}
	key := ""
	if app.PdfStoragePath != nil {
		key = *app.PdfStoragePath
	}
	params := paperParams(app)
	params["pdf_storage_path"] = key
	return s.enqueue(dbc, types.DispatchDeepAnalysis, app.ID, target, key, DeepAnalysisURLTTL, params)
}

func paperParams(app *types.Application) map[string]string {
	return map[string]string{
		"contact_email":  app.ContactEmail,
		"research_title": app.ResearchTitle,
		"institution":    app.Institution,
	}
}

func (s *dispatchService) enqueue(dbc dbctx.Context, kind types.DispatchKind, appID uuid.UUID, target, key string, ttl time.Duration, params map[string]string) (*types.DispatchIntent, error) {
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("webhook target: %w", err)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	intent, err := s.intents.Create(dbc, &types.DispatchIntent{
		Kind:          kind,
		ApplicationID: appID,
		TargetURL:     target,
		Params:        raw,
		BlobPath:      key,
		URLTTLSeconds: int(ttl / time.Second),
		Status:        types.DispatchQueued,
		NextAttemptAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	s.log.Debug("dispatch enqueued", "dispatch_id", intent.ID, "kind", kind, "application_id", appID)
	return intent, nil
}

func (s *dispatchService) List(ctx context.Context, status types.DispatchStatus, limit int) ([]*types.DispatchIntent, error) {
	switch status {
	case "", types.DispatchQueued, types.DispatchSending, types.DispatchSent, types.DispatchFailed, types.DispatchDead:
	default:
		return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown dispatch status %q", status))
	}
	return s.intents.ListByStatus(dbctx.New(ctx), status, limit)
}

// Retry requeues a failed or dead intent. Application status is untouched.
func (s *dispatchService) Retry(ctx context.Context, id uuid.UUID) (*types.DispatchIntent, error) {
	var out *types.DispatchIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		intent, err := s.intents.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if intent == nil {
			return apierr.NotFound("dispatch_not_found", nil)
		}
		if intent.Status != types.DispatchDead && intent.Status != types.DispatchFailed {
			return apierr.Conflict("not_retryable", fmt.Errorf("dispatch is %s", intent.Status))
		}
		if _, err := s.intents.Requeue(dbc, id); err != nil {
			return err
		}
		out, err = s.intents.GetByID(dbc, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("dispatch requeued", "dispatch_id", id, "kind", out.Kind)
	return out, nil
}
