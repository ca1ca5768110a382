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

type PotentialFilter struct {
	Status types.PotentialStatus
	Limit  int
	Offset int
}

type PotentialRepo interface {
	Create(dbc dbctx.Context, p *types.Potential) (*types.Potential, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Potential, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Potential, error)
	ListByApplicationID(dbc dbctx.Context, applicationID uuid.UUID) ([]*types.Potential, error)
	List(dbc dbctx.Context, filter PotentialFilter) ([]*types.Potential, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type potentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPotentialRepo(db *gorm.DB, baseLog *logger.Logger) PotentialRepo {
	return &potentialRepo{db: db, log: baseLog.With("repo", "PotentialRepo")}
}

func (r *potentialRepo) Create(dbc dbctx.Context, p *types.Potential) (*types.Potential, error) {
	if err := dbc.Conn(r.db).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *potentialRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Potential, error) {
	return r.first(dbc.Conn(r.db), id)
}

func (r *potentialRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Potential, error) {
	return r.first(forUpdate(dbc.Conn(r.db)), id)
}

func (r *potentialRepo) first(q *gorm.DB, id uuid.UUID) (*types.Potential, error) {
	var p types.Potential
	err := q.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *potentialRepo) ListByApplicationID(dbc dbctx.Context, applicationID uuid.UUID) ([]*types.Potential, error) {
	var out []*types.Potential
	if err := dbc.Conn(r.db).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// List orders best first: lowest avg_score, unscored last, newest on ties.
func (r *potentialRepo) List(dbc dbctx.Context, filter PotentialFilter) ([]*types.Potential, error) {
	q := dbc.Conn(r.db).Model(&types.Potential{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var out []*types.Potential
	if err := q.
		Order("CASE WHEN avg_score IS NULL THEN 1 ELSE 0 END").
		Order("avg_score ASC").
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *potentialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.Potential{}).Where("id = ?", id).Updates(updates).Error
}

func (r *potentialRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("potential_id = ?", id).Delete(&types.CriteriaScore{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&types.Potential{}).Error
	})
}
