package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/criteria"
	"github.com/yungbote/triage-backend/internal/dispatch"
	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
	"github.com/yungbote/triage-backend/internal/services"
)

type Services struct {
	Lifecycle   services.LifecycleService
	Ingestion   services.IngestionService
	Potentials  services.PotentialService
	Preferences services.PreferenceService
	Dispatches  services.DispatchService
	Notifier    *services.StatusNotifier

	Webhooks *dispatch.WebhookClient
	Worker   *dispatch.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, store gcp.PaperStore, emit realtime.Emitter) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := criteria.LoadCatalog()
	if err != nil {
		return Services{}, fmt.Errorf("load criteria catalog: %w", err)
	}

	notifier := services.NewStatusNotifier(emit)
	webhooks := dispatch.NewWebhookClient(log, cfg.Client)
	dispatches := services.NewDispatchService(db, log, r.Dispatch, r.Application, cfg.Webhooks, store.Bucket())
	lifecycle := services.NewLifecycleService(db, log, r.Application, r.Potential, dispatches, store, webhooks, cfg.Webhooks, notifier)

	return Services{
		Lifecycle:   lifecycle,
		Ingestion:   services.NewIngestionService(db, log, r.Application, r.Potential, r.Score, notifier),
		Potentials:  services.NewPotentialService(log, r.Application, r.Potential, r.Score),
		Preferences: services.NewPreferenceService(db, log, r.Preference, catalog),
		Dispatches:  dispatches,
		Notifier:    notifier,
		Webhooks:    webhooks,
		Worker:      dispatch.NewWorker(log, r.Dispatch, store, webhooks, lifecycle.OnDispatchDead, cfg.Worker),
	}, nil
}
