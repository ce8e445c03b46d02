package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lessonreel/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordUpsertsAndKeepsStartTime(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := store.Record(ctx, history.Run{
		WorkflowID: "wf-1", Slug: "tides", Topic: "Tides", Status: "running",
		CurrentStep: 1, TotalSteps: 4, StartedAt: start, UpdatedAt: start,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	later := start.Add(5 * time.Minute)
	if err := store.Record(ctx, history.Run{
		WorkflowID: "wf-1", Slug: "tides", Topic: "Tides", Status: "completed",
		CurrentStep: 4, TotalSteps: 4, StartedAt: later, UpdatedAt: later,
		OutputPath: "/tmp/wf-1_output.json",
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	run, err := store.Get(ctx, "wf-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run == nil {
		t.Fatal("expected run")
	}
	if run.Status != "completed" || run.CurrentStep != 4 {
		t.Fatalf("unexpected run: %#v", run)
	}
	if !run.StartedAt.Equal(start) {
		t.Fatalf("expected start time preserved, got %s", run.StartedAt)
	}
	if !run.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected updated time %s", run.UpdatedAt)
	}
	if run.OutputPath != "/tmp/wf-1_output.json" {
		t.Fatalf("unexpected output path %q", run.OutputPath)
	}
}

func TestRecordKeepsOutputPathWhenLaterUpdateOmitsIt(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()
	_ = store.Record(ctx, history.Run{WorkflowID: "wf", Slug: "s", Status: "completed", OutputPath: "/out.json", UpdatedAt: now})
	_ = store.Record(ctx, history.Run{WorkflowID: "wf", Slug: "s", Status: "completed", UpdatedAt: now.Add(time.Second)})

	run, err := store.Get(ctx, "wf")
	if err != nil || run == nil {
		t.Fatalf("Get failed: %v %v", run, err)
	}
	if run.OutputPath != "/out.json" {
		t.Fatalf("expected output path kept, got %q", run.OutputPath)
	}
}

func TestListOrdersByMostRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"wf-a", "wf-b", "wf-c"} {
		ts := base.Add(time.Duration(i) * time.Millisecond * 100)
		if err := store.Record(ctx, history.Run{WorkflowID: id, Slug: id, Status: "running", UpdatedAt: ts}); err != nil {
			t.Fatalf("Record %s failed: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].WorkflowID != "wf-c" || runs[1].WorkflowID != "wf-b" {
		t.Fatalf("unexpected order: %s, %s", runs[0].WorkflowID, runs[1].WorkflowID)
	}

	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openStore(t)
	run, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run, got %#v", run)
	}
}

func TestRecordRequiresWorkflowID(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), history.Run{Slug: "s"}); err == nil {
		t.Fatal("expected error for empty workflow id")
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Record(context.Background(), history.Run{WorkflowID: "wf", Slug: "s", Status: "error"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v (%v)", runs, err)
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	_ = raw.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := range 2 {
		store, err := history.Open(path)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		_ = store.Close()
	}
}
