// Package dispatch delivers outbox intents to the external analysis pipeline.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/yungbote/triage-backend/internal/platform/ctxutil"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

// StatusError is a soft failure: the target answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

type ClientConfig struct {
	AuthToken  string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// WebhookClient issues the GET calls the pipeline expects: every parameter in
// the query string and an optional bearer token.
type WebhookClient struct {
	http    *http.Client
	limiter *rate.Limiter
	token   string
	log     *logger.Logger
}

func NewWebhookClient(log *logger.Logger, cfg ClientConfig) *WebhookClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &WebhookClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		token:   strings.TrimSpace(cfg.AuthToken),
		log:     log.With("component", "WebhookClient"),
	}
}

// Call returns the response status code. Transport errors and non-2xx answers
// are both returned as errors; the latter as *StatusError.
func (c *WebhookClient) Call(ctx context.Context, target string, params url.Values) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return 0, fmt.Errorf("invalid webhook target %q", target)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	ctx, span := otel.Tracer("triage/dispatch").Start(ctx, "webhook.call")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.host", u.Host))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if rid := ctxutil.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return 0, fmt.Errorf("webhook call: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, "non-2xx")
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	c.log.Debug("webhook delivered", "host", u.Host, "status", resp.StatusCode)
	return resp.StatusCode, nil
}
