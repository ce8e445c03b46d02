package stageexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/params"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
)

type fakeHandler struct {
	calls      []string
	prepareErr error
	executeErr error
	logger     *slog.Logger
}

func (f *fakeHandler) Prepare(context.Context, *stage.Job) error {
	f.calls = append(f.calls, "prepare")
	return f.prepareErr
}

func (f *fakeHandler) Execute(context.Context, *stage.Job) error {
	f.calls = append(f.calls, "execute")
	return f.executeErr
}

func (f *fakeHandler) SetLogger(logger *slog.Logger) { f.logger = logger }

func testJob() *stage.Job {
	wp := params.WorkflowParams{WorkflowID: "wf-1"}
	wp.Slug = "tides"
	wp.Topic = "Tides"
	return &stage.Job{Params: wp, Layout: artifacts.New("/tmp/ws", "tides")}
}

func TestRunCallsPrepareThenExecute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := &fakeHandler{}

	if err := Run(context.Background(), Options{Logger: logger, Handler: handler, StageName: "essay", Job: testJob()}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.Join(handler.calls, ",") != "prepare,execute" {
		t.Fatalf("unexpected call order: %v", handler.calls)
	}
	if handler.logger == nil {
		t.Fatal("expected logger to be injected")
	}
	out := buf.String()
	for _, fragment := range []string{`"event_type":"stage_start"`, `"event_type":"stage_complete"`, `"workflow_id":"wf-1"`, `"step":"essay"`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %s in logs:\n%s", fragment, out)
		}
	}
}

func TestRunStopsAfterPrepareFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	prepErr := services.Wrap(services.ErrNotFound, "images", "require", "timestamps missing", nil)
	handler := &fakeHandler{prepareErr: prepErr}

	err := Run(context.Background(), Options{Logger: logger, Handler: handler, StageName: "images", Job: testJob()})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected prepare error, got %v", err)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("execute must not run after prepare failure: %v", handler.calls)
	}
	if !strings.Contains(buf.String(), `"event_type":"stage_failure"`) || !strings.Contains(buf.String(), `"error_kind":"not_found"`) {
		t.Fatalf("expected failure event in logs:\n%s", buf.String())
	}
}

func TestRunRequiresHandlerAndJob(t *testing.T) {
	if err := Run(context.Background(), Options{StageName: "x", Job: testJob()}); err == nil {
		t.Fatal("expected error without handler")
	}
	if err := Run(context.Background(), Options{StageName: "x", Handler: &fakeHandler{}}); err == nil {
		t.Fatal("expected error without job")
	}
}
