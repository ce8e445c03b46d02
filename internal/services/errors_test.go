package services_test

import (
	"errors"
	"strings"
	"testing"

	"lessonreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "compose", "concat", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"compose", "concat", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestExitCodeRoundTrip(t *testing.T) {
	markers := []error{
		services.ErrConfiguration,
		services.ErrValidation,
		services.ErrNotFound,
		services.ErrTimeout,
		services.ErrExternalTool,
		services.ErrRetriesExhausted,
	}
	for _, marker := range markers {
		err := services.Wrap(marker, "essay", "op", "msg", nil)
		code := services.ExitCode(err)
		if code == 0 || code == services.ExitFailure {
			t.Fatalf("expected dedicated exit code for %v, got %d", marker, code)
		}
		if back := services.MarkerForExitCode(code); !errors.Is(back, marker) {
			t.Fatalf("exit code %d mapped to %v, want %v", code, back, marker)
		}
	}
}

func TestExitCodeDefaults(t *testing.T) {
	if code := services.ExitCode(nil); code != 0 {
		t.Fatalf("expected 0 for nil, got %d", code)
	}
	if code := services.ExitCode(errors.New("plain")); code != services.ExitFailure {
		t.Fatalf("expected generic failure code, got %d", code)
	}
	if marker := services.MarkerForExitCode(2); !errors.Is(marker, services.ErrExternalTool) {
		t.Fatalf("expected runtime panic code to map to external tool, got %v", marker)
	}
	if marker := services.MarkerForExitCode(137); !errors.Is(marker, services.ErrExternalTool) {
		t.Fatalf("expected unknown code to map to external tool, got %v", marker)
	}
}

func TestDetailsPrefersRetriesExhausted(t *testing.T) {
	inner := services.Wrap(services.ErrTransient, "", "images.generate", "http 503", nil)
	err := services.Wrap(services.ErrRetriesExhausted, "", "images.generate", "failed after 3 attempts", inner)
	details := services.Details(err)
	if details.Kind != "retries_exhausted" {
		t.Fatalf("unexpected kind: got %q want %q", details.Kind, "retries_exhausted")
	}
	if details.Hint == "" {
		t.Fatal("expected hint")
	}
}
