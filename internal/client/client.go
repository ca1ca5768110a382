package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
)

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{base: u, http: httpClient}, nil
}

type UploadRequest struct {
	Filename      string
	File          io.Reader
	ApplicationID *uuid.UUID
	Meta          map[string]string
	TestMode      bool
}

type UploadResponse struct {
	Application     *types.Application `json:"application"`
	ProcessingError string             `json:"processing_error,omitempty"`
}

type StatusView struct {
	ID             uuid.UUID               `json:"id"`
	Status         types.ApplicationStatus `json:"status"`
	PdfStoragePath *string                 `json:"pdf_storage_path"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Upload posts the paper and metadata to /api/applications/upload.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if req.File == nil {
		return nil, fmt.Errorf("upload: file is required")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range req.Meta {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if req.ApplicationID != nil {
		_ = mw.WriteField("application_id", req.ApplicationID.String())
	}
	if req.TestMode {
		_ = mw.WriteField("test_mode", "true")
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(req.Filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, req.File); err != nil {
		return nil, fmt.Errorf("upload: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/applications/upload"), &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/applications/"+id.String()+"/status"), nil)
	if err != nil {
		return nil, err
	}
	var out StatusView
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var env struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
