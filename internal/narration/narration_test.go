package narration_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/logging"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/narration"
	"lessonreel/internal/params"
	"lessonreel/internal/pipeline"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
	"lessonreel/internal/testsupport"
)

// renderedAs reports every inspected file as a video of the given size with
// one audio track.
func renderedAs(width, height int) ffprobe.InspectFunc {
	return func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{
				{CodecType: "video", Width: width, Height: height},
				{CodecType: "audio"},
			},
			Format: ffprobe.Format{Duration: "42.5", Size: "4096"},
		}, nil
	}
}

type call struct {
	name string
	args []string
}

func setup(t *testing.T, format string) (*narration.Handler, *config.Config, *stage.Job, *[]call) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	req := params.Request{Topic: "Tides", Slug: "tides", LessonDate: "2026-03-14", ReadingLength: 60, VideoFormat: format}
	job := &stage.Job{
		Params: params.WorkflowParams{Request: req, WorkflowID: "wf-1"},
		Layout: artifacts.New(cfg.Paths.WorkspaceDir, req.Slug),
	}
	testsupport.WriteText(t, job.Layout.Path(artifacts.NarrationAudio), "mp3")

	var calls []call
	renderer := pipeline.NewRenderer(cfg, logging.NewNop())
	renderer.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, call{name: name, args: args})
		return nil
	})
	videoFormat := artifacts.FormatFor(req.Format())
	probe := ffprobe.Probe{
		Duration: func(context.Context, string) (float64, error) { return 42.5, nil },
		Inspect:  renderedAs(videoFormat.Width, videoFormat.Height),
	}
	return narration.NewHandler(cfg, renderer, probe, logging.NewNop()), cfg, job, &calls
}

func TestExecuteRendersRequestedFormat(t *testing.T) {
	handler, cfg, job, calls := setup(t, "portrait")
	testsupport.WriteText(t, filepath.Join(cfg.Paths.AssetsDir, "backgroundv.jpg"), "jpg")

	ctx := context.Background()
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(*calls))
	}
	args := (*calls)[0].args
	if (*calls)[0].name != "ffmpeg" {
		t.Fatalf("unexpected binary %q", (*calls)[0].name)
	}
	if got := args[len(args)-1]; got != job.Layout.Path("narration_vertical.mp4") {
		t.Fatalf("unexpected output %q", got)
	}
	i := slices.Index(args, "-t")
	if i < 0 || args[i+1] != "42.500" {
		t.Fatalf("expected probed duration in args: %v", args)
	}
	i = slices.Index(args, "-vf")
	if i < 0 || args[i+1] != "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2" {
		t.Fatalf("unexpected fit filter: %v", args)
	}
	if !slices.Contains(args, filepath.Join(cfg.Paths.AssetsDir, "backgroundv.jpg")) {
		t.Fatalf("expected portrait background in args: %v", args)
	}
}

func TestPrepareRequiresBackground(t *testing.T) {
	handler, _, job, _ := setup(t, "")
	err := handler.Prepare(context.Background(), job)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing background, got %v", err)
	}
}

func TestPrepareRequiresOutputFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	job := &stage.Job{Layout: artifacts.New(cfg.Paths.WorkspaceDir, "missing")}
	handler := narration.NewHandler(cfg, pipeline.NewRenderer(cfg, nil), ffprobe.Probe{}, nil)
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected handler without a duration probe to be unhealthy")
	}
}

func TestExecuteRejectsMisshapenRender(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := params.Request{Topic: "Tides", Slug: "tides", LessonDate: "2026-03-14", ReadingLength: 60}
	job := &stage.Job{
		Params: params.WorkflowParams{Request: req, WorkflowID: "wf-1"},
		Layout: artifacts.New(cfg.Paths.WorkspaceDir, req.Slug),
	}
	testsupport.WriteText(t, job.Layout.Path(artifacts.NarrationAudio), "mp3")
	renderer := pipeline.NewRenderer(cfg, logging.NewNop())
	renderer.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	probe := ffprobe.Probe{
		Duration: func(context.Context, string) (float64, error) { return 10, nil },
		Inspect:  renderedAs(1080, 1920),
	}
	handler := narration.NewHandler(cfg, renderer, probe, logging.NewNop())

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool for a portrait render of a landscape lesson, got %v", err)
	}
}
