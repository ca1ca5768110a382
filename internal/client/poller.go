package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 60

	StillProcessingNotice = "Your application is still being processed. You can check back later; processing continues in the background."
)

// StatusReader is the slice of Client the poller needs.
type StatusReader interface {
	Status(ctx context.Context, id uuid.UUID) (*StatusView, error)
}

type Outcome struct {
	Processed bool
	Attempts  int
	Status    types.ApplicationStatus
	Notice    string
}

// Poller waits, best effort, for an application to reach processed. Running
// out of attempts is not an error: the backend keeps working without us.
type Poller struct {
	Reader   StatusReader
	Interval time.Duration
	Attempts int
	Log      *logger.Logger

	// Sleep is swapped in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(r StatusReader, log *logger.Logger) *Poller {
	return &Poller{
		Reader:   r,
		Interval: DefaultPollInterval,
		Attempts: DefaultPollAttempts,
		Log:      log.With("component", "StatusPoller"),
		Sleep:    sleepCtx,
	}
}

func (p *Poller) WaitForProcessed(ctx context.Context, id uuid.UUID) (Outcome, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = DefaultPollAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var out Outcome
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Attempts = i
		view, err := p.Reader.Status(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			p.Log.Warn("status read failed", "application_id", id, "attempt", i, "error", err)
		case view.Status == types.StatusProcessed:
			out.Processed = true
			out.Status = view.Status
			return out, nil
		default:
			out.Status = view.Status
		}
		if i == attempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return out, err
		}
	}
	out.Notice = StillProcessingNotice
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
