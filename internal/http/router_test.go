package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/triage-backend/internal/http/handlers"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Log:           logger.Nop(),
		CORSOrigins:   []string{"https://dash.example.org"},
		HealthHandler: httpH.NewHealthHandler(nil),
	})
}

func TestRouterFallbacks(t *testing.T) {
	r := testRouter()

	cases := []struct {
		method, path string
		status       int
		code         string
	}{
		{nethttp.MethodPost, "/healthcheck", nethttp.StatusMethodNotAllowed, "method_not_allowed"},
		{nethttp.MethodGet, "/does-not-exist", nethttp.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: want %d got %d", tc.method, tc.path, tc.status, rec.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != tc.code {
			t.Fatalf("%s %s: code %q", tc.method, tc.path, body.Error.Code)
		}
	}
}

func TestRouterHealthAndTraceHeaders(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil)
	req.Header.Set("Origin", "https://dash.example.org")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example.org" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}
