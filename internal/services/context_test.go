package services_test

import (
	"context"
	"testing"

	"lessonreel/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithWorkflowID(ctx, "wf-7")
	ctx = services.WithStep(ctx, "essay")
	ctx = services.WithSlug(ctx, "black-holes")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.WorkflowIDFromContext(ctx); !ok || id != "wf-7" {
		t.Fatalf("unexpected workflow id: %v %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "essay" {
		t.Fatalf("unexpected step: %v %v", step, ok)
	}
	if slug, ok := services.SlugFromContext(ctx); !ok || slug != "black-holes" {
		t.Fatalf("unexpected slug: %v %v", slug, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStep(ctx, "")
	ctx = services.WithWorkflowID(ctx, "")
	if _, ok := services.StepFromContext(ctx); ok {
		t.Fatal("expected blank step to be ignored")
	}
	if _, ok := services.WorkflowIDFromContext(ctx); ok {
		t.Fatal("expected blank workflow id to be ignored")
	}
}
