package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
)

func TestClientUploadAndStatus(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/applications/upload":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse form: %v", err)
			}
			f, fh, err := r.FormFile("file")
			if err != nil {
				t.Errorf("form file: %v", err)
				return
			}
			body, _ := io.ReadAll(f)
			if fh.Filename != "paper.pdf" || string(body) != "%PDF-1.4" || r.FormValue("institution") != "Uni" {
				t.Errorf("unexpected upload: %s %q %q", fh.Filename, body, r.FormValue("institution"))
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"application":{"id":"`+id.String()+`","status":"processing"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/applications/"+id.String()+"/status":
			_, _ = io.WriteString(w, `{"id":"`+id.String()+`","status":"processed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"message":"application not found","code":"application_not_found"}}`)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	up, err := c.Upload(context.Background(), UploadRequest{
		Filename: "/tmp/paper.pdf",
		File:     strings.NewReader("%PDF-1.4"),
		Meta:     map[string]string{"institution": "Uni"},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.Application == nil || up.Application.ID != id || up.Application.Status != types.StatusProcessing {
		t.Fatalf("unexpected upload response: %+v", up.Application)
	}

	view, err := c.Status(context.Background(), id)
	if err != nil || view.Status != types.StatusProcessed {
		t.Fatalf("Status: %+v %v", view, err)
	}

	_, err = c.Status(context.Background(), uuid.New())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "application_not_found" {
		t.Fatalf("want decoded 404, got %v", err)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8080", nil); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}
