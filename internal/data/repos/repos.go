package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/repos/triage"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type ApplicationRepo = triage.ApplicationRepo
type PotentialRepo = triage.PotentialRepo
type CriteriaScoreRepo = triage.CriteriaScoreRepo
type CriteriaPreferenceRepo = triage.CriteriaPreferenceRepo
type DispatchIntentRepo = triage.DispatchIntentRepo

type ApplicationFilter = triage.ApplicationFilter
type PotentialFilter = triage.PotentialFilter

func NewApplicationRepo(db *gorm.DB, log *logger.Logger) ApplicationRepo {
	return triage.NewApplicationRepo(db, log)
}
func NewPotentialRepo(db *gorm.DB, log *logger.Logger) PotentialRepo {
	return triage.NewPotentialRepo(db, log)
}
func NewCriteriaScoreRepo(db *gorm.DB, log *logger.Logger) CriteriaScoreRepo {
	return triage.NewCriteriaScoreRepo(db, log)
}
func NewCriteriaPreferenceRepo(db *gorm.DB, log *logger.Logger) CriteriaPreferenceRepo {
	return triage.NewCriteriaPreferenceRepo(db, log)
}
func NewDispatchIntentRepo(db *gorm.DB, log *logger.Logger) DispatchIntentRepo {
	return triage.NewDispatchIntentRepo(db, log)
}

var IsUniqueViolation = triage.IsUniqueViolation
