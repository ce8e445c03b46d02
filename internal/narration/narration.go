package narration

import (
	"context"
	"log/slog"
	"path/filepath"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/logging"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/services/ffmpeg"
	"lessonreel/internal/stage"
)

const stageName = "narration-video"

// Handler implements step 3.
type Handler struct {
	cfg      *config.Config
	renderer *ffmpeg.Renderer
	probe    ffprobe.Probe
	logger   *slog.Logger
}

// NewHandler wires the narration video step.
func NewHandler(cfg *config.Config, renderer *ffmpeg.Renderer, probe ffprobe.Probe, logger *slog.Logger) *Handler {
	h := &Handler{cfg: cfg, renderer: renderer, probe: probe}
	h.SetLogger(logger)
	return h
}

// SetLogger updates the handler's logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, stageName)
}

// Background returns the background image path for format.
func Background(cfg *config.Config, format artifacts.VideoFormat) string {
	return filepath.Join(cfg.Paths.AssetsDir, format.Background)
}

func (h *Handler) Prepare(_ context.Context, job *stage.Job) error {
	if err := stage.RequireOutputDir(stageName, job); err != nil {
		return err
	}
	if err := stage.RequireFile(stageName, job.Layout.Path(artifacts.NarrationAudio), "run step 1 first"); err != nil {
		return err
	}
	format := artifacts.FormatFor(job.Params.Format())
	return stage.RequireFile(stageName, Background(h.cfg, format), "add the background image to paths.assets_dir")
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	format := artifacts.FormatFor(job.Params.Format())
	audio := job.Layout.Path(artifacts.NarrationAudio)
	output := job.Layout.Path(format.Narration)

	seconds, err := h.probe.Duration(ctx, audio)
	if err != nil {
		return err
	}
	h.logger.Info("rendering narration video",
		logging.String(logging.FieldEventType, "narration_video_start"),
		logging.String("format", format.Name),
		logging.Float64("audio_seconds", seconds),
		logging.String("output", output),
	)
	if err := h.renderer.StillWithAudio(ctx, Background(h.cfg, format), audio, output, format.Width, format.Height, seconds); err != nil {
		return err
	}
	result, err := ffprobe.VerifyRender(ctx, h.probe.Inspect, output, format.Width, format.Height)
	if err != nil {
		return err
	}
	h.logger.Info("narration video rendered",
		logging.String(logging.FieldEventType, "narration_video_complete"),
		logging.String("output", output),
		logging.Float64("video_seconds", result.DurationSeconds()),
		logging.Int("size_bytes", int(result.SizeBytes())),
	)
	return nil
}

func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.cfg == nil || h.renderer == nil || !h.probe.Ready() {
		return stage.Unhealthy(stageName, "not configured")
	}
	return stage.Healthy(stageName)
}
