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

type ApplicationFilter struct {
	Status types.ApplicationStatus
	Limit  int
	Offset int
}

type ApplicationRepo interface {
	Create(dbc dbctx.Context, app *types.Application) (*types.Application, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Application, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error)
	List(dbc dbctx.Context, filter ApplicationFilter) ([]*types.Application, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateStatusIfIn(dbc dbctx.Context, id uuid.UUID, from []types.ApplicationStatus, to types.ApplicationStatus) (bool, error)
	SetPdfPathIfEmpty(dbc dbctx.Context, id uuid.UUID, path string) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "ApplicationRepo")}
}

func (r *applicationRepo) Create(dbc dbctx.Context, app *types.Application) (*types.Application, error) {
	if err := dbc.Conn(r.db).Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

func (r *applicationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error) {
	var app types.Application
	err := dbc.Conn(r.db).Where("id = ?", id).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Application, error) {
	var out []*types.Application
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *applicationRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Application, error) {
	var app types.Application
	err := forUpdate(dbc.Conn(r.db)).Where("id = ?", id).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) List(dbc dbctx.Context, filter ApplicationFilter) ([]*types.Application, error) {
	q := dbc.Conn(r.db).Model(&types.Application{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var out []*types.Application
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *applicationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.Application{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusIfIn is a compare-and-set: the row changes only while its status is one of from.
func (r *applicationRepo) UpdateStatusIfIn(dbc dbctx.Context, id uuid.UUID, from []types.ApplicationStatus, to types.ApplicationStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	res := dbc.Conn(r.db).Model(&types.Application{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *applicationRepo) SetPdfPathIfEmpty(dbc dbctx.Context, id uuid.UUID, path string) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.Application{}).
		Where("id = ? AND (pdf_storage_path IS NULL OR pdf_storage_path = '')", id).
		Updates(map[string]interface{}{"pdf_storage_path": path, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *applicationRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Application{}).Error
}
