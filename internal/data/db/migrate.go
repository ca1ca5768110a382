package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/domain/triage"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&triage.Application{},
		&triage.Potential{},
		&triage.CriteriaScore{},
		&triage.CriteriaPreference{},
		&triage.DispatchIntent{},
	)
}
