package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	repos "github.com/yungbote/triage-backend/internal/data/repos/triage"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type Caller interface {
	Call(ctx context.Context, target string, params url.Values) (int, error)
}

type Signer interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var _ Signer = (gcp.PaperStore)(nil)

type WorkerConfig struct {
	Concurrency  int
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleSending time.Duration
	PollInterval time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleSending <= 0 {
		c.StaleSending = 10 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// DeadHandler is told about every intent that exhausted its attempts.
type DeadHandler func(ctx context.Context, intent *types.DispatchIntent)

type Worker struct {
	log    *logger.Logger
	repo   repos.DispatchIntentRepo
	signer Signer
	caller Caller
	onDead DeadHandler
	cfg    WorkerConfig
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.DispatchIntentRepo, signer Signer, caller Caller, onDead DeadHandler, cfg WorkerConfig) *Worker {
	return &Worker{
		log:    baseLog.With("component", "DispatchWorker"),
		repo:   repo,
		signer: signer,
		caller: caller,
		onDead: onDead,
		cfg:    cfg.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the sender loops and returns immediately. Wait blocks until
// they have stopped after ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting dispatch worker pool", "concurrency", w.cfg.Concurrency, "max_attempts", w.cfg.MaxAttempts)
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Dispatch loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for {
				did, err := w.ProcessNext(ctx)
				if err != nil {
					w.log.Warn("dispatch claim failed", "worker_id", workerID, "error", err)
					break
				}
				if !did || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// ProcessNext claims and delivers a single due intent. It reports whether one was found.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	dbc := dbctx.New(ctx)
	intent, err := w.repo.ClaimNextDue(dbc, w.now(), w.cfg.StaleSending)
	if err != nil {
		return false, err
	}
	if intent == nil {
		return false, nil
	}

	log := w.log.With("dispatch_id", intent.ID, "kind", intent.Kind, "application_id", intent.ApplicationID, "attempt", intent.Attempts)

	status, sendErr := w.deliver(ctx, intent)
	if sendErr == nil {
		if err := w.repo.MarkSent(dbc, intent.ID, status); err != nil {
			return true, fmt.Errorf("mark sent: %w", err)
		}
		log.Info("dispatch delivered", "status", status)
		return true, nil
	}

	if intent.Attempts >= w.cfg.MaxAttempts {
		if err := w.repo.MarkDead(dbc, intent.ID, sendErr.Error(), status); err != nil {
			return true, fmt.Errorf("mark dead: %w", err)
		}
		log.Error("dispatch dead-lettered", "status", status, "error", sendErr)
		intent.Status = types.DispatchDead
		intent.LastError = sendErr.Error()
		intent.LastStatusCode = status
		if w.onDead != nil {
			w.onDead(ctx, intent)
		}
		return true, nil
	}

	next := w.now().Add(w.backoff(intent.Attempts))
	if err := w.repo.MarkFailed(dbc, intent.ID, sendErr.Error(), status, next); err != nil {
		return true, fmt.Errorf("mark failed: %w", err)
	}
	log.Warn("dispatch failed; will retry", "status", status, "error", sendErr, "next_attempt_at", next)
	return true, nil
}

func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.RetryDelay
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	return d
}

func (w *Worker) deliver(ctx context.Context, intent *types.DispatchIntent) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	params, err := w.buildParams(ctx, intent)
	if err != nil {
		return 0, err
	}
	status, err = w.caller.Call(ctx, intent.TargetURL, params)
	var se *StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
	}
	return status, err
}

// buildParams restores the stored query parameters and adds the ones that must
// be fresh at send time: the timestamp and a newly signed paper URL.
func (w *Worker) buildParams(ctx context.Context, intent *types.DispatchIntent) (url.Values, error) {
	params := url.Values{}
	if len(intent.Params) > 0 {
		var stored map[string]string
		if err := json.Unmarshal(intent.Params, &stored); err != nil {
			return nil, fmt.Errorf("decode dispatch params: %w", err)
		}
		for k, v := range stored {
			params.Set(k, v)
		}
	}
	params.Set("application_id", intent.ApplicationID.String())
	params.Set("timestamp", w.now().Format(time.RFC3339))

	if intent.BlobPath != "" {
		ttl := time.Duration(intent.URLTTLSeconds) * time.Second
		signed, err := w.signer.SignedURL(ctx, intent.BlobPath, ttl)
		if err != nil {
			return nil, fmt.Errorf("sign paper url: %w", err)
		}
		params.Set("pdf_url", signed)
		if intent.Kind == types.DispatchProcessPaper {
			params.Set("file_url", signed)
		}
	}
	return params, nil
}
