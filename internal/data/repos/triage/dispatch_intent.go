package triage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type DispatchIntentRepo interface {
	Create(dbc dbctx.Context, intent *types.DispatchIntent) (*types.DispatchIntent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchIntent, error)
	ListByStatus(dbc dbctx.Context, status types.DispatchStatus, limit int) ([]*types.DispatchIntent, error)
	ClaimNextDue(dbc dbctx.Context, now time.Time, staleSending time.Duration) (*types.DispatchIntent, error)
	MarkSent(dbc dbctx.Context, id uuid.UUID, statusCode int) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string, statusCode int, nextAttemptAt time.Time) error
	MarkDead(dbc dbctx.Context, id uuid.UUID, errMsg string, statusCode int) error
	Requeue(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type dispatchIntentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDispatchIntentRepo(db *gorm.DB, baseLog *logger.Logger) DispatchIntentRepo {
	return &dispatchIntentRepo{db: db, log: baseLog.With("repo", "DispatchIntentRepo")}
}

func (r *dispatchIntentRepo) Create(dbc dbctx.Context, intent *types.DispatchIntent) (*types.DispatchIntent, error) {
	if err := dbc.Conn(r.db).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *dispatchIntentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchIntent, error) {
	var intent types.DispatchIntent
	err := dbc.Conn(r.db).Where("id = ?", id).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *dispatchIntentRepo) ListByStatus(dbc dbctx.Context, status types.DispatchStatus, limit int) ([]*types.DispatchIntent, error) {
	q := dbc.Conn(r.db).Model(&types.DispatchIntent{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.DispatchIntent
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextDue picks the oldest due intent and marks it sending. Intents stuck
// in sending longer than staleSending are reclaimed. Concurrent claimers skip
// each other's locked rows.
func (r *dispatchIntentRepo) ClaimNextDue(dbc dbctx.Context, now time.Time, staleSending time.Duration) (*types.DispatchIntent, error) {
	var claimed *types.DispatchIntent
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		var intent types.DispatchIntent
		staleCutoff := now.Add(-staleSending)
		q := skipLocked(txx).
			Where(
				"(status IN ? AND next_attempt_at <= ?) OR (status = ? AND locked_at < ?)",
				[]types.DispatchStatus{types.DispatchQueued, types.DispatchFailed}, now,
				types.DispatchSending, staleCutoff,
			).
			Order("next_attempt_at ASC").
			Order("created_at ASC")
		if err := q.First(&intent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		updates := map[string]interface{}{
			"status":     types.DispatchSending,
			"attempts":   gorm.Expr("attempts + 1"),
			"locked_at":  now,
			"updated_at": now,
		}
		if err := txx.Model(&types.DispatchIntent{}).Where("id = ?", intent.ID).Updates(updates).Error; err != nil {
			return err
		}
		intent.Status = types.DispatchSending
		intent.Attempts++
		intent.LockedAt = &now
		claimed = &intent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *dispatchIntentRepo) MarkSent(dbc dbctx.Context, id uuid.UUID, statusCode int) error {
	now := time.Now().UTC()
	return r.update(dbc, id, map[string]interface{}{
		"status":           types.DispatchSent,
		"last_status_code": statusCode,
		"last_error":       "",
		"sent_at":          now,
		"locked_at":        nil,
		"updated_at":       now,
	})
}

func (r *dispatchIntentRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string, statusCode int, nextAttemptAt time.Time) error {
	return r.update(dbc, id, map[string]interface{}{
		"status":           types.DispatchFailed,
		"last_error":       errMsg,
		"last_status_code": statusCode,
		"next_attempt_at":  nextAttemptAt,
		"locked_at":        nil,
		"updated_at":       time.Now().UTC(),
	})
}

func (r *dispatchIntentRepo) MarkDead(dbc dbctx.Context, id uuid.UUID, errMsg string, statusCode int) error {
	return r.update(dbc, id, map[string]interface{}{
		"status":           types.DispatchDead,
		"last_error":       errMsg,
		"last_status_code": statusCode,
		"locked_at":        nil,
		"updated_at":       time.Now().UTC(),
	})
}

// Requeue resets a failed or dead intent for another round of attempts.
func (r *dispatchIntentRepo) Requeue(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := dbc.Conn(r.db).Model(&types.DispatchIntent{}).
		Where("id = ? AND status IN ?", id, []types.DispatchStatus{types.DispatchDead, types.DispatchFailed}).
		Updates(map[string]interface{}{
			"status":          types.DispatchQueued,
			"attempts":        0,
			"next_attempt_at": now,
			"locked_at":       nil,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dispatchIntentRepo) update(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dbc.Conn(r.db).Model(&types.DispatchIntent{}).Where("id = ?", id).Updates(updates).Error
}
