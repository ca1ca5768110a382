package triage

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type CriteriaScoreRepo interface {
	Create(dbc dbctx.Context, score *types.CriteriaScore) (*types.CriteriaScore, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CriteriaScore, error)
	ListByPotentialID(dbc dbctx.Context, potentialID uuid.UUID) ([]*types.CriteriaScore, error)
	ReplaceForPotential(dbc dbctx.Context, potentialID uuid.UUID, rows []*types.CriteriaScore) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type criteriaScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCriteriaScoreRepo(db *gorm.DB, baseLog *logger.Logger) CriteriaScoreRepo {
	return &criteriaScoreRepo{db: db, log: baseLog.With("repo", "CriteriaScoreRepo")}
}

func (r *criteriaScoreRepo) Create(dbc dbctx.Context, score *types.CriteriaScore) (*types.CriteriaScore, error) {
	if err := dbc.Conn(r.db).Create(score).Error; err != nil {
		return nil, err
	}
	return score, nil
}

func (r *criteriaScoreRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CriteriaScore, error) {
	var cs types.CriteriaScore
	err := dbc.Conn(r.db).Where("id = ?", id).First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (r *criteriaScoreRepo) ListByPotentialID(dbc dbctx.Context, potentialID uuid.UUID) ([]*types.CriteriaScore, error) {
	var out []*types.CriteriaScore
	if err := dbc.Conn(r.db).
		Where("potential_id = ?", potentialID).
		Order("criterion_id ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceForPotential deletes every score of the potential and inserts rows.
// It joins the caller's transaction when one is attached and opens its own otherwise.
func (r *criteriaScoreRepo) ReplaceForPotential(dbc dbctx.Context, potentialID uuid.UUID, rows []*types.CriteriaScore) error {
	return dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("potential_id = ?", potentialID).Delete(&types.CriteriaScore{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.PotentialID = potentialID
		}
		return tx.Create(&rows).Error
	})
}

func (r *criteriaScoreRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.CriteriaScore{}).Where("id = ?", id).Updates(updates).Error
}

func (r *criteriaScoreRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.CriteriaScore{}).Error
}
