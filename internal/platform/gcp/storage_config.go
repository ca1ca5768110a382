package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

const DefaultPaperBucket = "research-papers"

type StorageConfig struct {
	Mode         StorageMode
	EmulatorHost string
	Bucket       string
}

func (c StorageConfig) IsEmulator() bool { return c.Mode == StorageModeGCSEmulator }

type StorageConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *StorageConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("object storage config: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("object storage config: %s=%q %s", e.Field, e.Value, e.Reason)
}

// StorageConfigFromEnv resolves OBJECT_STORAGE_MODE, STORAGE_EMULATOR_HOST and
// PAPER_GCS_BUCKET_NAME. An emulator host without an explicit mode selects the emulator.
func StorageConfigFromEnv() (StorageConfig, error) {
	cfg := StorageConfig{
		EmulatorHost: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/"),
		Bucket:       strings.TrimSpace(os.Getenv("PAPER_GCS_BUCKET_NAME")),
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultPaperBucket
	}
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE"))
	switch StorageMode(strings.ToLower(raw)) {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
		}
	case StorageModeGCS:
		cfg.Mode = StorageModeGCS
	case StorageModeGCSEmulator:
		cfg.Mode = StorageModeGCSEmulator
	default:
		return cfg, &StorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: raw, Reason: "must be gcs or gcs_emulator"}
	}
	return cfg, cfg.Validate()
}

func (c StorageConfig) Validate() error {
	if c.Mode != StorageModeGCS && c.Mode != StorageModeGCSEmulator {
		return &StorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(c.Mode), Reason: "must be gcs or gcs_emulator"}
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return &StorageConfigError{Field: "PAPER_GCS_BUCKET_NAME", Reason: "is required"}
	}
	if !c.IsEmulator() {
		return nil
	}
	if c.EmulatorHost == "" {
		return &StorageConfigError{Field: "STORAGE_EMULATOR_HOST", Reason: "is required in gcs_emulator mode"}
	}
	u, err := url.Parse(c.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &StorageConfigError{Field: "STORAGE_EMULATOR_HOST", Value: c.EmulatorHost, Reason: "must be an absolute URL like http://fake-gcs:4443"}
	}
	return nil
}
