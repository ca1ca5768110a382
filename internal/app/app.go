package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/db"
	httpapi "github.com/yungbote/triage-backend/internal/http"
	"github.com/yungbote/triage-backend/internal/observability"
	"github.com/yungbote/triage-backend/internal/platform/envutil"
	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
	"github.com/yungbote/triage-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	Server   *httpapi.Server

	store        *db.Service
	papers       gcp.PaperStore
	bus          bus.Bus
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	a.store, err = db.NewService(log, cfg.Store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(a.store.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.DB = a.store.DB()

	a.papers, err = resolvePaperStore(log, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Hub = realtime.NewHub(log)
	var emit realtime.Emitter = &realtime.HubEmitter{Hub: a.Hub}
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		b, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			// Single-instance delivery still works through the local hub.
			log.Warn("Redis event bus unavailable; using local hub only", "error", err)
		} else {
			a.bus = b
			emit = &bus.Emitter{Bus: b, Log: log}
		}
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services, err = wireServices(a.DB, log, cfg, a.Repos, a.papers, emit)
	if err != nil {
		a.Close()
		return nil, err
	}
	h := wireHandlers(log, a.Services, a.Hub, a.store.Ping)

	otelName := ""
	if cfg.Otel.Enabled {
		otelName = cfg.Otel.ServiceName
	}
	a.Server = httpapi.NewServer(httpapi.RouterConfig{
		Log:                log,
		ServiceName:        otelName,
		CORSOrigins:        cfg.CORSOrigins,
		HealthHandler:      h.Health,
		ApplicationHandler: h.Application,
		PipelineHandler:    h.Pipeline,
		IngestionHandler:   h.Ingestion,
		PotentialHandler:   h.Potential,
		PreferenceHandler:  h.Preference,
		DispatchHandler:    h.Dispatch,
		RealtimeHandler:    h.Realtime,
	})
	return a, nil
}

// Run serves HTTP and runs the dispatch sender (plus the redis forwarder when
// configured) until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server.Run(gctx, ":"+a.Cfg.Port)
	})
	g.Go(func() error {
		a.Services.Worker.Start(gctx)
		a.Services.Worker.Wait()
		return nil
	})
	if a.bus != nil {
		g.Go(func() error {
			if err := a.bus.StartForwarder(gctx, a.Hub.Broadcast); err != nil {
				return fmt.Errorf("realtime forwarder: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.papers != nil {
		_ = a.papers.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	a.Log.Sync()
}
