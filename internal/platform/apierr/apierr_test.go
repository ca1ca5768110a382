package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("resolve potential: %w", NotFound("potential_not_found", nil))
	if got := StatusOf(err); got != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, got)
	}
	if got := CodeOf(err, "x"); got != "potential_not_found" {
		t.Fatalf("code: want=potential_not_found got=%q", got)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(ErrNotFound)")
	}
}

func TestStatusOfPlainErrorIsInternal(t *testing.T) {
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", got)
	}
	if got := CodeOf(errors.New("boom"), "internal"); got != "internal" {
		t.Fatalf("code: want=internal got=%q", got)
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	if got := New(http.StatusConflict, "wrong_state", nil).Error(); got != "wrong_state" {
		t.Fatalf("want code as message, got=%q", got)
	}
	if got := New(http.StatusTeapot, "", nil).Error(); got != "api error (418)" {
		t.Fatalf("want status message, got=%q", got)
	}
}
