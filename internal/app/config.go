package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/triage-backend/internal/data/db"
	"github.com/yungbote/triage-backend/internal/dispatch"
	"github.com/yungbote/triage-backend/internal/observability"
	"github.com/yungbote/triage-backend/internal/platform/envutil"
	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime/bus"
	"github.com/yungbote/triage-backend/internal/services"
)

const serviceName = "triage-backend"

type Config struct {
	Port        string
	LogMode     string
	CORSOrigins []string

	Store    db.StoreConfig
	Storage  gcp.StorageConfig
	Webhooks services.WebhookConfig
	Client   dispatch.ClientConfig
	Worker   dispatch.WorkerConfig
	Redis    bus.RedisConfig
	Otel     observability.OtelConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	storage, err := gcp.StorageConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("object storage config: %w", err)
	}
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		CORSOrigins: envutil.List("CORS_ALLOW_ORIGINS", nil),
		Store:       db.StoreConfigFromEnv(),
		Storage:     storage,
		Webhooks: services.WebhookConfig{
			ProcessURL:      envutil.String("N8N_PROCESS_WEBHOOK_URL", ""),
			ProcessTestURL:  envutil.String("N8N_PROCESS_TEST_WEBHOOK_URL", ""),
			DeepAnalysisURL: envutil.String("N8N_DEEP_ANALYSIS_WEBHOOK_URL", ""),
		},
		Client: dispatch.ClientConfig{
			AuthToken:  envutil.String("N8N_AUTH_TOKEN", ""),
			Timeout:    envutil.Seconds("N8N_TIMEOUT_SECONDS", 30*time.Second),
			RatePerSec: envutil.Float("DISPATCH_RATE_PER_SEC", 5),
			Burst:      envutil.Int("DISPATCH_RATE_BURST", 5),
		},
		Worker: dispatch.WorkerConfig{
			Concurrency: envutil.Int("DISPATCH_WORKERS", 2),
			MaxAttempts: envutil.Int("DISPATCH_MAX_ATTEMPTS", 3),
			RetryDelay:  envutil.Seconds("DISPATCH_RETRY_DELAY_SECONDS", 30*time.Second),
		},
		Redis: bus.RedisConfig{
			Addr:    envutil.String("REDIS_ADDR", ""),
			Channel: envutil.String("REDIS_CHANNEL", "triage-events"),
		},
		Otel: observability.OtelConfigFromEnv(serviceName),
	}

	if cfg.Webhooks.ProcessURL == "" {
		log.Warn("N8N_PROCESS_WEBHOOK_URL not set; uploads will be stored but not dispatched")
	}
	if cfg.Webhooks.DeepAnalysisURL == "" {
		log.Warn("N8N_DEEP_ANALYSIS_WEBHOOK_URL not set; deep analysis requests will fail")
	}
	log.Info("Configuration loaded",
		"port", cfg.Port,
		"db_driver", cfg.Store.Driver,
		"storage_mode", cfg.Storage.Mode,
		"bucket", cfg.Storage.Bucket,
		"dispatch_workers", cfg.Worker.Concurrency,
		"dispatch_max_attempts", cfg.Worker.MaxAttempts,
		"redis", strings.TrimSpace(cfg.Redis.Addr) != "",
		"otel", cfg.Otel.Enabled,
	)
	return cfg, nil
}
