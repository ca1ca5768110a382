package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

var ErrObjectExists = errors.New("object already exists")

// PaperStore keeps uploaded research papers and hands out time-limited read URLs.
type PaperStore interface {
	Bucket() string
	// Upload never overwrites: an existing key yields ErrObjectExists.
	Upload(dbc dbctx.Context, key string, file io.Reader) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Close() error
}

type gcsPaperStore struct {
	log    *logger.Logger
	client *storage.Client
	cfg    StorageConfig
}

func NewPaperStore(log *logger.Logger, cfg StorageConfig) (PaperStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := newStorageClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "PaperStore")
	serviceLog.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	return &gcsPaperStore{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.IsEmulator() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (s *gcsPaperStore) Bucket() string { return s.cfg.Bucket }

func (s *gcsPaperStore) Upload(dbc dbctx.Context, key string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.cfg.Bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%s: %w", key, ErrObjectExists)
		}
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	s.log.Debug("paper uploaded", "key", key)
	return nil
}

// SignedURL signs a V4 GET URL. The emulator does not verify signatures, so it
// gets a plain media URL instead.
func (s *gcsPaperStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("signed url: empty key")
	}
	if s.cfg.IsEmulator() {
		return emulatorMediaURL(s.cfg.EmulatorHost, s.cfg.Bucket, key), nil
	}
	u, err := s.client.Bucket(s.cfg.Bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return u, nil
}

func (s *gcsPaperStore) Close() error {
	return s.client.Close()
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
