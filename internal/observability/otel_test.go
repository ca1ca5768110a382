package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc , broken, =x, team=triage ")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "triage" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_SAMPLER_RATIO", "7")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg := OtelConfigFromEnv("triage-backend")
	if !cfg.Enabled || cfg.SampleRatio != 1 || cfg.Endpoint != "collector:4318" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ServiceName != "triage-backend" {
		t.Fatalf("service name: %q", cfg.ServiceName)
	}
}
