package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/params"
	"lessonreel/internal/services"
	"lessonreel/internal/status"
	"lessonreel/internal/testsupport"
	"lessonreel/internal/workflow"
)

func TestRunAllStepsProducesOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	paramsPath := writeRequest(t, dir, "tides")
	statusPath := filepath.Join(dir, "status.json")

	out, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: paramsPath,
		StatusPath: statusPath,
		WorkflowID: "wf-1",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := runner.names(); !slices.Equal(got, []string{"essay", "images", "narration-video", "compose"}) {
		t.Fatalf("unexpected steps: %v", got)
	}
	if !out.Success || out.ThumbnailURL != "/images/tides.png" {
		t.Fatalf("unexpected output: %#v", out)
	}
	if out.YouTubeURL != "https://youtu.be/wf-1" {
		t.Fatalf("unexpected url %q", out.YouTubeURL)
	}
	if !strings.Contains(out.ArticleText, "wf-1") {
		t.Fatalf("unexpected article %q", out.ArticleText)
	}
	if out.Metadata.Slug != "tides" || out.Metadata.Topic != "Topic tides" {
		t.Fatalf("unexpected metadata %#v", out.Metadata)
	}

	outputPath := filepath.Join(dir, "tides_output.json")
	doc := readOutput(t, outputPath)
	if string(doc["success"]) != "true" || string(doc["thumbnailUrl"]) != `"/images/tides.png"` {
		t.Fatalf("unexpected output document: %v", doc)
	}
	var quiz struct {
		Questions []struct {
			Answer string `json:"answer"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(doc["quizData"], &quiz); err != nil || len(quiz.Questions) != 1 || quiz.Questions[0].Answer != "A" {
		t.Fatalf("unexpected quiz data %s: %v", doc["quizData"], err)
	}

	rec := readStatus(t, statusPath)
	if rec.Status != status.StatusCompleted || rec.CurrentStep != 4 || rec.TotalSteps != 4 {
		t.Fatalf("unexpected status: %#v", rec)
	}

	wp, err := params.Load(filepath.Join(cfg.Paths.ParamsDir, params.FileName("wf-1")))
	if err != nil {
		t.Fatalf("load stored params: %v", err)
	}
	if wp.WorkflowID != "wf-1" || wp.LessonDate != "2026-03-14" {
		t.Fatalf("unexpected stored params: %#v", wp)
	}
}

func TestRunStopsAtFailingStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg, failAt: 3}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	paramsPath := writeRequest(t, dir, "volcanoes")
	statusPath := filepath.Join(dir, "status.json")

	out, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: paramsPath,
		StatusPath: statusPath,
		WorkflowID: "wf-fail",
	})
	if err == nil || out != nil {
		t.Fatalf("expected failure, got %v %v", out, err)
	}
	var stepErr *workflow.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 3 {
		t.Fatalf("expected StepError for step 3, got %v", err)
	}
	if got := runner.names(); slices.Contains(got, "compose") {
		t.Fatalf("step 4 must not run after a failure: %v", got)
	}

	rec := readStatus(t, statusPath)
	if rec.Status != status.StatusError || rec.CurrentStep != 3 {
		t.Fatalf("unexpected status: %#v", rec)
	}
	if rec.Error != "Step 3 failed: boom" {
		t.Fatalf("unexpected error message %q", rec.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "volcanoes_output.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestRunResumesFromStartStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	paramsPath := writeRequest(t, dir, "glaciers")
	statusPath := filepath.Join(dir, "status.json")

	out, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: paramsPath,
		StatusPath: statusPath,
		WorkflowID: "wf-resume",
		StartStep:  3,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := runner.names(); !slices.Equal(got, []string{"narration-video", "compose"}) {
		t.Fatalf("unexpected steps: %v", got)
	}
	if !out.Success {
		t.Fatal("expected success")
	}
	// Step 1 never ran, so the article falls back to its placeholder.
	if out.ArticleText != workflow.PlaceholderArticleText {
		t.Fatalf("unexpected article %q", out.ArticleText)
	}
	if _, err := os.Stat(filepath.Join(dir, "glaciers_output.json")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestRunRejectsOutOfRangeStartStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")
	_, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "deserts"),
		StatusPath: statusPath,
		WorkflowID: "wf-range",
		StartStep:  5,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(runner.names()) != 0 {
		t.Fatal("no step should run")
	}
	rec := readStatus(t, statusPath)
	if rec.Status != status.StatusError || rec.CurrentStep != 0 {
		t.Fatalf("unexpected status: %#v", rec)
	}
}

func TestRunReportsInvalidRequestAtStepZero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := workflow.New(cfg, &fakeRunner{cfg: cfg}, nil)

	dir := t.TempDir()
	paramsPath := filepath.Join(dir, "bad_params.json")
	if err := os.WriteFile(paramsPath, []byte(`{"topic":"","slug":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	statusPath := filepath.Join(dir, "status.json")
	if _, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: paramsPath,
		StatusPath: statusPath,
		WorkflowID: "wf-bad",
	}); err == nil {
		t.Fatal("expected error")
	}
	rec := readStatus(t, statusPath)
	if rec.Status != status.StatusError || rec.CurrentStep != 0 || rec.Error == "" {
		t.Fatalf("unexpected status: %#v", rec)
	}
}

func TestRunRejectsUnsafeWorkflowID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := workflow.New(cfg, &fakeRunner{cfg: cfg}, nil)
	dir := t.TempDir()
	_, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "rivers"),
		StatusPath: filepath.Join(dir, "status.json"),
		WorkflowID: "../escape",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, _ := os.ReadDir(cfg.Paths.ParamsDir)
	if len(entries) != 0 {
		t.Fatalf("expected no params files, got %d", len(entries))
	}
}

func TestConcurrentWorkflowsStayIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	type run struct {
		id, slug, dir string
		out           *workflow.Output
		err           error
	}
	runs := []*run{
		{id: "wf-a", slug: "comets", dir: t.TempDir()},
		{id: "wf-b", slug: "corals", dir: t.TempDir()},
	}
	for _, r := range runs {
		writeRequest(t, r.dir, r.slug)
	}

	var wg sync.WaitGroup
	for _, r := range runs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.out, r.err = orch.Run(context.Background(), workflow.Options{
				ParamsPath: filepath.Join(r.dir, r.slug+"_params.json"),
				StatusPath: filepath.Join(r.dir, "status.json"),
				WorkflowID: r.id,
			})
		}()
	}
	wg.Wait()

	for _, r := range runs {
		if r.err != nil {
			t.Fatalf("%s failed: %v", r.id, r.err)
		}
		if r.out.WorkflowID != r.id || r.out.Metadata.Slug != r.slug {
			t.Fatalf("%s got another workflow's output: %#v", r.id, r.out)
		}
		if r.out.YouTubeURL != "https://youtu.be/"+r.id {
			t.Fatalf("%s read another workflow's url %q", r.id, r.out.YouTubeURL)
		}
		wp, err := params.Load(filepath.Join(cfg.Paths.ParamsDir, params.FileName(r.id)))
		if err != nil || wp.Slug != r.slug {
			t.Fatalf("%s params file mixed up: %#v %v", r.id, wp, err)
		}
		rec := readStatus(t, filepath.Join(r.dir, "status.json"))
		if rec.Status != status.StatusCompleted {
			t.Fatalf("%s unexpected status %#v", r.id, rec)
		}
	}
	if got := len(runner.names()); got != 8 {
		t.Fatalf("expected 8 step runs, got %d", got)
	}
}

func TestRunRejectsSlugHeldByAnotherWorkflow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	layout := artifacts.New(cfg.Paths.WorkspaceDir, "auroras")
	if err := os.MkdirAll(layout.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(layout.Dir(), artifacts.LockFile))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("could not take lock: %v", err)
	}
	defer held.Unlock()

	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")
	_, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "auroras"),
		StatusPath: statusPath,
		WorkflowID: "wf-second",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
	if len(runner.names()) != 0 {
		t.Fatal("no step should run while the slug is locked")
	}
	if rec := readStatus(t, statusPath); rec.Status != status.StatusError || rec.CurrentStep != 0 {
		t.Fatalf("unexpected status %#v", rec)
	}
}

func TestCancellationBetweenSteps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &fakeRunner{cfg: cfg, after: func(spec workflow.StepSpec) {
		if spec.Index == 2 {
			cancel()
		}
	}}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")
	_, err := orch.Run(ctx, workflow.Options{
		ParamsPath: writeRequest(t, dir, "tsunamis"),
		StatusPath: statusPath,
		WorkflowID: "wf-cancel",
	})
	if !errors.Is(err, workflow.ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if got := runner.names(); !slices.Equal(got, []string{"essay", "images"}) {
		t.Fatalf("step 3 must not launch after cancellation: %v", got)
	}
	rec := readStatus(t, statusPath)
	if rec.Status != status.StatusCancelled || rec.CurrentStep != 2 || rec.Error != workflow.CancelledMessage {
		t.Fatalf("unexpected status %#v", rec)
	}
	if _, err := os.Stat(filepath.Join(dir, "tsunamis_output.json")); !os.IsNotExist(err) {
		t.Fatal("cancelled workflow must not write output")
	}
}

func TestCancellationBeforeFirstStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &fakeRunner{cfg: cfg}
	orch := workflow.New(cfg, runner, nil)

	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")
	_, err := orch.Run(ctx, workflow.Options{
		ParamsPath: writeRequest(t, dir, "storms"),
		StatusPath: statusPath,
		WorkflowID: "wf-early",
		StartStep:  2,
	})
	if !errors.Is(err, workflow.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(runner.names()) != 0 {
		t.Fatal("no step should run")
	}
	if rec := readStatus(t, statusPath); rec.Status != status.StatusCancelled || rec.CurrentStep != 1 {
		t.Fatalf("unexpected status %#v", rec)
	}
}

func TestMissingQuizYieldsNull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := workflow.New(cfg, &fakeRunner{cfg: cfg, skipQuiz: true}, nil)

	dir := t.TempDir()
	out, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "moons"),
		StatusPath: filepath.Join(dir, "status.json"),
		WorkflowID: "wf-noquiz",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.QuizData != nil {
		t.Fatalf("expected nil quiz, got %s", out.QuizData)
	}
	doc := readOutput(t, filepath.Join(dir, "moons_output.json"))
	if string(doc["quizData"]) != "null" || string(doc["success"]) != "true" {
		t.Fatalf("unexpected output document: %v", doc)
	}
}

func TestStatusTimestampsStrictlyIncrease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := &recordingLedger{}
	orch := workflow.New(cfg, &fakeRunner{cfg: cfg}, nil,
		workflow.WithClock(func() time.Time { return frozen }),
		workflow.WithRecorder(ledger),
	)

	dir := t.TempDir()
	if _, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "eclipses"),
		StatusPath: filepath.Join(dir, "status.json"),
		WorkflowID: "wf-clock",
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	// Four running updates plus the completion.
	if len(ledger.runs) != 5 {
		t.Fatalf("expected 5 transitions, got %d", len(ledger.runs))
	}
	for i := 1; i < len(ledger.runs); i++ {
		if !ledger.runs[i].UpdatedAt.After(ledger.runs[i-1].UpdatedAt) {
			t.Fatalf("updatedAt not increasing at %d: %s then %s", i, ledger.runs[i-1].UpdatedAt, ledger.runs[i].UpdatedAt)
		}
		if ledger.runs[i].CurrentStep < ledger.runs[i-1].CurrentStep {
			t.Fatalf("currentStep decreased at %d", i)
		}
	}
	last := ledger.runs[len(ledger.runs)-1]
	if last.Status != string(status.StatusCompleted) || last.OutputPath == "" {
		t.Fatalf("unexpected final ledger row %#v", last)
	}
}

func TestLedgerFailureDoesNotAbortRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := &recordingLedger{err: errors.New("disk full")}
	orch := workflow.New(cfg, &fakeRunner{cfg: cfg}, nil, workflow.WithRecorder(ledger))

	dir := t.TempDir()
	if _, err := orch.Run(context.Background(), workflow.Options{
		ParamsPath: writeRequest(t, dir, "lava"),
		StatusPath: filepath.Join(dir, "status.json"),
		WorkflowID: "wf-ledger",
	}); err != nil {
		t.Fatalf("ledger errors must be swallowed, got %v", err)
	}
}
