package app

import (
	"errors"
	"testing"

	"github.com/yungbote/triage-backend/internal/platform/gcp"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

func TestClassifyStorageBootstrapError(t *testing.T) {
	cfg := gcp.StorageConfig{Mode: gcp.StorageModeGCSEmulator, EmulatorHost: "fake-gcs:4443", Bucket: "papers"}

	got := classifyStorageBootstrapError(cfg, &gcp.StorageConfigError{Field: "STORAGE_EMULATOR_HOST", Reason: "bad"})
	if got.Code != StorageBootstrapInvalidConfig {
		t.Fatalf("config error: got %q", got.Code)
	}

	got = classifyStorageBootstrapError(cfg, errors.New("dial tcp: refused"))
	if got.Code != StorageBootstrapConnectFailed {
		t.Fatalf("connect error: got %q", got.Code)
	}
}

func TestResolvePaperStoreWrapsFailure(t *testing.T) {
	orig := newPaperStore
	t.Cleanup(func() { newPaperStore = orig })
	cause := errors.New("boom")
	newPaperStore = func(*logger.Logger, gcp.StorageConfig) (gcp.PaperStore, error) { return nil, cause }

	_, err := resolvePaperStore(logger.Nop(), gcp.StorageConfig{Mode: gcp.StorageModeGCS, Bucket: "papers"})
	var bootErr *StorageBootstrapError
	if !errors.As(err, &bootErr) || bootErr.Code != StorageBootstrapConnectFailed {
		t.Fatalf("expected connect_failed bootstrap error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should unwrap")
	}
}
