package services

import (
	"context"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/criteria"
	"github.com/yungbote/triage-backend/internal/data/repos"
	"github.com/yungbote/triage-backend/internal/data/repos/testutil"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
)

type fakeStore struct {
	mu        sync.Mutex
	uploadErr error
	objects   map[string][]byte
	signed    []time.Duration
}

func (s *fakeStore) Bucket() string { return "research-papers" }

func (s *fakeStore) Upload(_ dbctx.Context, key string, file io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	b, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = b
	return nil
}

func (s *fakeStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	s.signed = append(s.signed, ttl)
	s.mu.Unlock()
	return "https://storage.example/" + key + "?X-Goog-Signature=abc", nil
}

type fakeCaller struct {
	status  int
	err     error
	targets []string
	calls   []url.Values
}

func (c *fakeCaller) Call(_ context.Context, target string, params url.Values) (int, error) {
	c.targets = append(c.targets, target)
	c.calls = append(c.calls, params)
	return c.status, c.err
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.Message) {
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
}

func (e *recordingEmitter) events(kind realtime.Event) []realtime.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []realtime.Message
	for _, m := range e.msgs {
		if m.Event == kind {
			out = append(out, m)
		}
	}
	return out
}

var testWebhooks = WebhookConfig{
	ProcessURL:      "http://n8n.local/webhook/process",
	ProcessTestURL:  "http://n8n.local/webhook-test/process",
	DeepAnalysisURL: "http://n8n.local/webhook/deep",
}

type testEnv struct {
	db          *gorm.DB
	log         *logger.Logger
	apps        repos.ApplicationRepo
	potentials  repos.PotentialRepo
	scores      repos.CriteriaScoreRepo
	prefs       repos.CriteriaPreferenceRepo
	intents     repos.DispatchIntentRepo
	store       *fakeStore
	caller      *fakeCaller
	emitter     *recordingEmitter
	dispatches  DispatchService
	lifecycle   LifecycleService
	ingestion   IngestionService
	potentialSv PotentialService
	preferences PreferenceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithWebhooks(t, testWebhooks)
}

func newTestEnvWithWebhooks(t *testing.T, hooks WebhookConfig) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	env := &testEnv{
		db:         db,
		log:        log,
		apps:       repos.NewApplicationRepo(db, log),
		potentials: repos.NewPotentialRepo(db, log),
		scores:     repos.NewCriteriaScoreRepo(db, log),
		prefs:      repos.NewCriteriaPreferenceRepo(db, log),
		intents:    repos.NewDispatchIntentRepo(db, log),
		store:      &fakeStore{},
		caller:     &fakeCaller{status: 200},
		emitter:    &recordingEmitter{},
	}
	notify := NewStatusNotifier(env.emitter)
	env.dispatches = NewDispatchService(db, log, env.intents, env.apps, hooks, env.store.Bucket())
	env.lifecycle = NewLifecycleService(db, log, env.apps, env.potentials, env.dispatches, env.store, env.caller, hooks, notify)
	env.ingestion = NewIngestionService(db, log, env.apps, env.potentials, env.scores, notify)
	env.potentialSv = NewPotentialService(log, env.apps, env.potentials, env.scores)

	cat, err := criteria.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	env.preferences = NewPreferenceService(db, log, env.prefs, cat)
	return env
}

func (e *testEnv) dbc() dbctx.Context { return dbctx.New(context.Background()) }
