package app

import (
	httpH "github.com/yungbote/triage-backend/internal/http/handlers"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Application *httpH.ApplicationHandler
	Pipeline    *httpH.PipelineHandler
	Ingestion   *httpH.IngestionHandler
	Potential   *httpH.PotentialHandler
	Preference  *httpH.PreferenceHandler
	Dispatch    *httpH.DispatchHandler
	Realtime    *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, s Services, hub *realtime.Hub, ping httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(ping),
		Application: httpH.NewApplicationHandler(log, s.Lifecycle),
		Pipeline:    httpH.NewPipelineHandler(log, s.Lifecycle),
		Ingestion:   httpH.NewIngestionHandler(log, s.Ingestion, s.Preferences),
		Potential:   httpH.NewPotentialHandler(s.Potentials),
		Preference:  httpH.NewPreferenceHandler(s.Preferences),
		Dispatch:    httpH.NewDispatchHandler(s.Dispatches),
		Realtime:    httpH.NewRealtimeHandler(log, hub),
	}
}
