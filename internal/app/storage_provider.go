package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

var newPaperStore = gcp.NewPaperStore

type StorageBootstrapErrorCode string

const (
	StorageBootstrapInvalidConfig StorageBootstrapErrorCode = "invalid_config"
	StorageBootstrapConnectFailed StorageBootstrapErrorCode = "connect_failed"
)

type StorageBootstrapError struct {
	Code         StorageBootstrapErrorCode
	Mode         gcp.StorageMode
	EmulatorHost string
	Cause        error
}

func (e *StorageBootstrapError) Error() string {
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code, e.Mode, e.EmulatorHost, e.Cause,
	)
}

func (e *StorageBootstrapError) Unwrap() error { return e.Cause }

func resolvePaperStore(log *logger.Logger, cfg gcp.StorageConfig) (gcp.PaperStore, error) {
	log.Info("Selecting object storage provider", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	store, err := newPaperStore(log, cfg)
	if err != nil {
		classified := classifyStorageBootstrapError(cfg, err)
		log.Error("Object storage provider bootstrap failed",
			"mode", cfg.Mode,
			"emulator_host", cfg.EmulatorHost,
			"error_code", classified.Code,
			"error", err,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageBootstrapError(cfg gcp.StorageConfig, err error) *StorageBootstrapError {
	code := StorageBootstrapConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) {
		code = StorageBootstrapInvalidConfig
	}
	return &StorageBootstrapError{Code: code, Mode: cfg.Mode, EmulatorHost: cfg.EmulatorHost, Cause: err}
}
