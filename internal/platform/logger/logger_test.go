package logger

import "testing"

func TestSanitizeValueRedactsCredentials(t *testing.T) {
	if got := sanitizeValue("authorization", "Bearer abc"); got != "[REDACTED]" {
		t.Fatalf("authorization: want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("contact_email", "a@b.c"); got != "[REDACTED]" {
		t.Fatalf("contact_email: want=[REDACTED] got=%v", got)
	}
	got := sanitizeValue("pdf_url", "https://storage.example/b/o.pdf?X-Goog-Signature=abc")
	if got != "https://storage.example/b/o.pdf?[REDACTED]" {
		t.Fatalf("pdf_url: got=%v", got)
	}
	if got := sanitizeValue("application_id", "42"); got != "42" {
		t.Fatalf("application_id should pass through, got=%v", got)
	}
}

func TestWithKeepsLogger(t *testing.T) {
	log := Nop().With("service", "X")
	if log == nil || log.SugaredLogger == nil {
		t.Fatalf("With returned nil logger")
	}
	log.Info("hello", "odd")
}
