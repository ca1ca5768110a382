package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/yungbote/triage-backend/internal/platform/logger"
)

func TestWebhookClientSendsQueryAndBearer(t *testing.T) {
	var gotQuery url.Values
	var gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(logger.Nop(), ClientConfig{AuthToken: "secret"})
	params := url.Values{}
	params.Set("application_id", "42")
	params.Set("pdf_url", "https://storage.example/o.pdf?X-Goog-Signature=a&b=c")
	params.Set("research_title", "Fusion & friends")

	status, err := c.Call(context.Background(), srv.URL+"/webhook/abc?fixed=1", params)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if status != http.StatusOK || gotMethod != http.MethodGet {
		t.Fatalf("status=%d method=%s", status, gotMethod)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization: got=%q", gotAuth)
	}
	if gotQuery.Get("pdf_url") != params.Get("pdf_url") || gotQuery.Get("research_title") != "Fusion & friends" {
		t.Fatalf("query not round-tripped: %v", gotQuery)
	}
	if gotQuery.Get("fixed") != "1" {
		t.Fatalf("existing target query lost: %v", gotQuery)
	}
}

func TestWebhookClientNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no token configured, got Authorization header")
		}
		http.Error(w, "workflow inactive", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewWebhookClient(logger.Nop(), ClientConfig{})
	status, err := c.Call(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want StatusError, got=%v", err)
	}
	if status != http.StatusNotFound || se.Body != "workflow inactive" {
		t.Fatalf("status=%d body=%q", status, se.Body)
	}
}

func TestWebhookClientRejectsBadTarget(t *testing.T) {
	c := NewWebhookClient(logger.Nop(), ClientConfig{})
	if _, err := c.Call(context.Background(), "not a url", nil); err == nil {
		t.Fatalf("expected error for invalid target")
	}
}
