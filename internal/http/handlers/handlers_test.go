package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/criteria"
	"github.com/yungbote/triage-backend/internal/data/repos"
	"github.com/yungbote/triage-backend/internal/data/repos/testutil"
	"github.com/yungbote/triage-backend/internal/dispatch"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	httpapi "github.com/yungbote/triage-backend/internal/http"
	httpH "github.com/yungbote/triage-backend/internal/http/handlers"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/realtime"
	"github.com/yungbote/triage-backend/internal/services"
)

type memStore struct{}

func (memStore) Bucket() string { return "research-papers" }
func (memStore) Upload(_ dbctx.Context, _ string, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
func (memStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example/" + key + "?sig=1", nil
}

type stubCaller struct {
	status int
	err    error
}

func (s *stubCaller) Call(context.Context, string, url.Values) (int, error) { return s.status, s.err }

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	caller *stubCaller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := logger.Nop()
	apps := repos.NewApplicationRepo(db, log)
	potentials := repos.NewPotentialRepo(db, log)
	scores := repos.NewCriteriaScoreRepo(db, log)
	prefs := repos.NewCriteriaPreferenceRepo(db, log)
	intents := repos.NewDispatchIntentRepo(db, log)

	hooks := services.WebhookConfig{
		ProcessURL:      "http://n8n.local/process",
		DeepAnalysisURL: "http://n8n.local/deep",
	}
	caller := &stubCaller{status: 200}
	hub := realtime.NewHub(log)
	notify := services.NewStatusNotifier(&realtime.HubEmitter{Hub: hub})

	dispatches := services.NewDispatchService(db, log, intents, apps, hooks, "research-papers")
	lifecycle := services.NewLifecycleService(db, log, apps, potentials, dispatches, memStore{}, caller, hooks, notify)
	ingestion := services.NewIngestionService(db, log, apps, potentials, scores, notify)
	cat, err := criteria.LoadCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	preferences := services.NewPreferenceService(db, log, prefs, cat)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Log:                log,
		HealthHandler:      httpH.NewHealthHandler(nil),
		ApplicationHandler: httpH.NewApplicationHandler(log, lifecycle),
		PipelineHandler:    httpH.NewPipelineHandler(log, lifecycle),
		IngestionHandler:   httpH.NewIngestionHandler(log, ingestion, preferences),
		PotentialHandler:   httpH.NewPotentialHandler(services.NewPotentialService(log, apps, potentials, scores)),
		PreferenceHandler:  httpH.NewPreferenceHandler(preferences),
		DispatchHandler:    httpH.NewDispatchHandler(dispatches),
		RealtimeHandler:    httpH.NewRealtimeHandler(log, hub),
	})
	return &fixture{db: db, router: router, caller: caller}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope in %s", rec.Body.String())
	}
	code, _ := e["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadThenReadStatus(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("contact_email", "lab@example.org")
	_ = mw.WriteField("institution", "TU Example")
	fw, err := mw.CreateFormFile("file", "widgets.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/applications/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	app := decode(t, rec)["application"].(map[string]any)
	id := app["id"].(string)

	rec = f.do(t, http.MethodGet, "/api/applications/"+id+"/status", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != string(types.StatusProcessing) {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.pdf")
	_, _ = fw.Write([]byte("just some text"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/applications/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_file_type" {
		t.Fatalf("want 400 invalid_file_type, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDeepAnalysisEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/deep-analysis", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id: %d", rec.Code)
	}

	app := testutil.SeedApplication(t, ctx, f.db, types.StatusProcessed, "public/x/p.pdf")
	rec = f.do(t, http.MethodPost, "/deep-analysis", map[string]any{"application_id": app.ID.String()})
	if rec.Code != http.StatusAccepted || decode(t, rec)["success"] != true {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/deep-analysis", map[string]any{"application_id": app.ID.String()})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "invalid_status" {
		t.Fatalf("second start: %d %s", rec.Code, rec.Body.String())
	}
}

func TestDeepAnalysisWebhookSoftFailure(t *testing.T) {
	f := newFixture(t)
	app := testutil.SeedApplication(t, context.Background(), f.db, types.StatusProcessed, "public/x/p.pdf")
	f.caller.status = 500
	f.caller.err = &dispatch.StatusError{StatusCode: 500}

	rec := f.do(t, http.MethodPost, "/deep-analysis-webhook", map[string]any{
		"application_id":   app.ID.String(),
		"pdf_storage_path": "public/x/p.pdf",
	})
	if rec.Code != http.StatusBadGateway || decode(t, rec)["success"] != false {
		t.Fatalf("want 502 soft failure, got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/deep-analysis-webhook", map[string]any{"application_id": app.ID.String()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path: %d", rec.Code)
	}
}

func TestCallbackEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := testutil.SeedApplication(t, ctx, f.db, types.StatusUnderReview, "public/x/p.pdf")
	pot := testutil.SeedPotential(t, ctx, f.db, app)

	rec := f.do(t, http.MethodPost, "/n8n-callback", map[string]any{
		"application_id": app.ID.String(),
		"summary":        "promising",
		"criteria": []map[string]any{
			{"criterion": "Scalability", "score": 5, "confidence": 0.9, "missing_data": "None"},
			{"criterion": "Risk/Return Balance", "score": 4, "confidence": 0.9},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("callback: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["ok"] != true || body["potential_id"] != pot.ID.String() || body["status"] != "declined" || body["criteria_count"] != float64(2) {
		t.Fatalf("body: %v", body)
	}

	rec = f.do(t, http.MethodPost, "/n8n-callback", `{"potential_id":"`+pot.ID.String()+`","criteria":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid payload: %d", rec.Code)
	}
}

func TestInsertScoreEndpoint(t *testing.T) {
	f := newFixture(t)
	pot := testutil.SeedPotential(t, context.Background(), f.db, nil)

	rec := f.do(t, http.MethodGet, "/insert-criteria-score", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: want 405 got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/insert-criteria-score", map[string]any{
		"potential_id": pot.ID.String(),
		"criterion_id": "Scalability",
		"score":        2,
		"confidence":   0.7,
	})
	if rec.Code != http.StatusCreated || decode(t, rec)["success"] != true {
		t.Fatalf("insert: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/insert-criteria-score", map[string]any{
		"potential_id": pot.ID.String(),
		"criterion_id": "Scalability",
		"score":        12,
		"confidence":   0.7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range: %d", rec.Code)
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/preferences", map[string]any{
		"preferences": []map[string]any{{"criterion": "Scalability", "factor": 9}},
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_factor" {
		t.Fatalf("invalid factor: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPut, "/api/preferences", map[string]any{
		"preferences": []map[string]any{{"criterion": "Scalability", "factor": 5}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/api/preferences/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d", rec.Code)
	}
}

func TestApplicationStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := testutil.SeedApplication(t, ctx, f.db, types.StatusProcessing, "public/x/p.pdf")

	rec := f.do(t, http.MethodPost, "/api/applications/"+app.ID.String()+"/status", map[string]any{"status": "processed", "actor": "pipeline"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pipeline completion: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/api/applications/"+app.ID.String()+"/status", map[string]any{"status": "uploaded"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("backwards move: %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/applications/"+app.ID.String()+"/status", map[string]any{"status": "accepted", "actor": "system"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("system actor from outside: %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/applications/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestPotentialAndDispatchEndpoints(t *testing.T) {
	f := newFixture(t)
	pot := testutil.SeedPotential(t, context.Background(), f.db, nil)

	rec := f.do(t, http.MethodPatch, "/api/potentials/"+pot.ID.String(), map[string]any{"progress_stage": 2, "status": "won"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/potentials", nil)
	if rec.Code != http.StatusOK || len(decode(t, rec)["potentials"].([]any)) != 1 {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/dispatches?status=dead", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatches: %d", rec.Code)
	}
}
