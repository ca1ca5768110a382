package triage

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type CriteriaPreferenceRepo interface {
	List(dbc dbctx.Context) ([]types.CriteriaPreference, error)
	Upsert(dbc dbctx.Context, prefs []types.CriteriaPreference) error
	ResetAll(dbc dbctx.Context, factor int) (int64, error)
}

type criteriaPreferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCriteriaPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) CriteriaPreferenceRepo {
	return &criteriaPreferenceRepo{db: db, log: baseLog.With("repo", "CriteriaPreferenceRepo")}
}

func (r *criteriaPreferenceRepo) List(dbc dbctx.Context) ([]types.CriteriaPreference, error) {
	var out []types.CriteriaPreference
	if err := dbc.Conn(r.db).Order("criterion ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *criteriaPreferenceRepo) Upsert(dbc dbctx.Context, prefs []types.CriteriaPreference) error {
	if len(prefs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range prefs {
		prefs[i].UpdatedAt = now
	}
	return dbc.Conn(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "criterion"}},
		DoUpdates: clause.AssignmentColumns([]string{"factor", "updated_at"}),
	}).Create(&prefs).Error
}

func (r *criteriaPreferenceRepo) ResetAll(dbc dbctx.Context, factor int) (int64, error) {
	res := dbc.Conn(r.db).Model(&types.CriteriaPreference{}).
		Where("1 = 1").
		Updates(map[string]interface{}{"factor": factor, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
