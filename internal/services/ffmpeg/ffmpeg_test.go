package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"lessonreel/internal/logging"
	"lessonreel/internal/services"
)

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func newTestRenderer(rec *recorder) *Renderer {
	r := NewRenderer("/usr/bin/ffmpeg", Encoding{FrameRate: 24}, logging.NewNop())
	r.WithCommandRunner(rec.run)
	return r
}

func TestStillWithAudioArgs(t *testing.T) {
	rec := &recorder{}
	r := newTestRenderer(rec)
	out := filepath.Join(t.TempDir(), "narration.mp4")
	if err := r.StillWithAudio(context.Background(), "bg.jpg", "n.mp3", out, 1920, 1080, 61.5); err != nil {
		t.Fatalf("StillWithAudio: %v", err)
	}
	args := rec.calls[0]
	if args[0] != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected binary %q", args[0])
	}
	joined := strings.Join(args, " ")
	for _, fragment := range []string{"-loop 1 -i bg.jpg", "-i n.mp3", "scale=1920:1080", "-t 61.500", "-r 24", "-c:v libx264", "-shortest"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if args[len(args)-1] != out {
		t.Fatalf("expected output last, got %q", args[len(args)-1])
	}
}

func TestMuxHoldsLastFrame(t *testing.T) {
	rec := &recorder{}
	r := newTestRenderer(rec)
	out := filepath.Join(t.TempDir(), "final_video.mp4")
	if err := r.Mux(context.Background(), "images_only.mp4", "narration.mp4", out, 1080, 1920, 63.25); err != nil {
		t.Fatalf("Mux: %v", err)
	}
	joined := strings.Join(rec.calls[0], " ")
	if !strings.Contains(joined, "tpad=stop_mode=clone:stop_duration=63.250") {
		t.Fatalf("expected tpad hold in %q", joined)
	}
	if !slices.Contains(rec.calls[0], "1:a") {
		t.Fatalf("expected narration audio mapping in %q", joined)
	}
}

func TestFailuresAreExternalToolErrors(t *testing.T) {
	rec := &recorder{err: errors.New("exit status 1: Invalid data")}
	r := newTestRenderer(rec)
	err := r.Concat(context.Background(), "list.txt", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "concat") {
		t.Fatalf("expected op in error, got %v", err)
	}
}

func TestConcatListEscapesQuotes(t *testing.T) {
	got := ConcatList([]string{"/tmp/seg_000.mp4", "/tmp/it's.mp4"})
	want := "file '/tmp/seg_000.mp4'\nfile '/tmp/it'\\''s.mp4'\n"
	if got != want {
		t.Fatalf("unexpected list:\n%s", got)
	}
}
