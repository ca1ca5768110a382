package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/repos"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type Repos struct {
	Application repos.ApplicationRepo
	Potential   repos.PotentialRepo
	Score       repos.CriteriaScoreRepo
	Preference  repos.CriteriaPreferenceRepo
	Dispatch    repos.DispatchIntentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Application: repos.NewApplicationRepo(db, log),
		Potential:   repos.NewPotentialRepo(db, log),
		Score:       repos.NewCriteriaScoreRepo(db, log),
		Preference:  repos.NewCriteriaPreferenceRepo(db, log),
		Dispatch:    repos.NewDispatchIntentRepo(db, log),
	}
}
