package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/history"
	"lessonreel/internal/params"
	"lessonreel/internal/status"
	"lessonreel/internal/workflow"
)

// fakeRunner mirrors ExecRunner's status protocol without spawning processes.
type fakeRunner struct {
	cfg    *config.Config
	failAt int
	// after runs once the step body finished, before Run returns.
	after func(spec workflow.StepSpec)
	// skipQuiz leaves quiz_data.json out of step 1's artifacts.
	skipQuiz bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, spec workflow.StepSpec, paramsPath string, reporter *status.Reporter) error {
	reporter.Update(spec.Index, status.StatusRunning, "")
	f.mu.Lock()
	f.calls = append(f.calls, spec.Name)
	f.mu.Unlock()

	if spec.Index == f.failAt {
		msg := fmt.Sprintf("Step %d failed: boom", spec.Index)
		reporter.Update(spec.Index, status.StatusError, msg)
		return &workflow.StepError{Step: spec.Index, Name: spec.Name, ExitCode: 5, Kind: "external_tool", Message: msg}
	}

	wp, err := params.Load(paramsPath)
	if err != nil {
		return err
	}
	layout := artifacts.New(f.cfg.Paths.WorkspaceDir, wp.Slug)
	switch spec.Index {
	case 1:
		writeJSON(layout.Path(artifacts.EssayJSON), map[string]string{
			"slug": wp.Slug, "title": wp.Topic, "body": "Essay about " + wp.Topic + " for " + wp.WorkflowID,
		})
		if !f.skipQuiz {
			writeJSON(layout.Path(artifacts.QuizData), map[string]any{
				"questions": []map[string]any{
					{"question": "Q?", "options": []string{"A", "B"}, "answer": "A"},
				},
			})
		}
	case 4:
		writeFile(layout.Path(artifacts.FinalVideo), "video")
		writeFile(layout.Path(artifacts.YouTubeURL), "https://youtu.be/"+wp.WorkflowID+"\n")
	}
	if f.after != nil {
		f.after(spec)
	}
	return nil
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func writeJSON(path string, v any) {
	data, _ := json.Marshal(v)
	writeFile(path, string(data))
}

func writeFile(path, content string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte(content), 0o644)
}

// writeRequest writes a caller params file and returns its path.
func writeRequest(t *testing.T, dir, slug string) string {
	t.Helper()
	path := filepath.Join(dir, slug+"_params.json")
	req := params.Request{
		Topic:         "Topic " + slug,
		Slug:          slug,
		LessonDate:    "2026-03-14",
		ReadingLength: 60,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}
	return path
}

func readStatus(t *testing.T, path string) status.Record {
	t.Helper()
	rec, err := status.Read(path)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	return rec
}

func readOutput(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return doc
}

// recordingLedger captures history rows in memory.
type recordingLedger struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (r *recordingLedger) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

var _ workflow.StepRunner = (*fakeRunner)(nil)
var _ workflow.Recorder = (*recordingLedger)(nil)
