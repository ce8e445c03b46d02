package composition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/publish"
	"lessonreel/internal/services"
	"lessonreel/internal/services/ffmpeg"
	"lessonreel/internal/stage"
	"lessonreel/internal/textutil"
	"lessonreel/internal/transcript"
)

const stageName = "compose"

// Publisher publishes a composed workflow.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, job *stage.Job) (publish.Result, error)
	Close() error
}

// Handler implements step 4.
type Handler struct {
	cfg       *config.Config
	renderer  *ffmpeg.Renderer
	probe     ffprobe.Probe
	publisher Publisher
	logger    *slog.Logger
}

// NewHandler wires the composition step. publisher may be nil.
func NewHandler(cfg *config.Config, renderer *ffmpeg.Renderer, probe ffprobe.Probe, publisher Publisher, logger *slog.Logger) *Handler {
	h := &Handler{cfg: cfg, renderer: renderer, probe: probe, publisher: publisher}
	h.SetLogger(logger)
	return h
}

// SetLogger updates the handler's logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, stageName)
	if aware, ok := h.publisher.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
}

func (h *Handler) Prepare(_ context.Context, job *stage.Job) error {
	if err := stage.RequireOutputDir(stageName, job); err != nil {
		return err
	}
	format := artifacts.FormatFor(job.Params.Format())
	checks := []struct{ path, hint string }{
		{job.Layout.Path(artifacts.Timestamps), "run step 1 first"},
		{job.Layout.Path(artifacts.NarrationAudio), "run step 1 first"},
		{job.Layout.Path(format.Narration), "run step 3 first"},
	}
	for _, check := range checks {
		if err := stage.RequireFile(stageName, check.path, check.hint); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	layout := job.Layout
	format := artifacts.FormatFor(job.Params.Format())

	background, err := h.ensureBackground(layout, format)
	if err != nil {
		return err
	}
	h.ensureTitle(job)

	renamed, err := RenameLegacyImages(layout.Images())
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "rename legacy images", layout.Images(), err)
	}
	if renamed > 0 {
		h.logger.Info("renamed legacy image files", logging.Int("count", renamed))
	}

	segments, err := transcript.ParseFile(layout.Path(artifacts.Timestamps))
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "read timestamps", "", err)
	}
	entries := Timeline(segments, func(index int) bool {
		if fileutil.NonEmptyFile(layout.ImagePath(index)) {
			return true
		}
		logging.WarnWithContext(h.logger, "illustration missing; holding previous image", "artifact_missing",
			logging.String("image", layout.ImagePath(index)),
		)
		return false
	})
	if len(entries) == 0 {
		return services.Wrap(services.ErrNotFound, stageName, "timeline", "no illustrations found in "+layout.Images()+"; run step 2 first", nil)
	}

	h.logger.Info("composing video",
		logging.String(logging.FieldEventType, "compose_start"),
		logging.Int("segments", len(segments)),
		logging.Int("clips", len(entries)),
		logging.String("format", format.Name),
	)

	clips, err := h.renderClips(ctx, layout, background, entries)
	if err != nil {
		return err
	}

	listPath := layout.Path(artifacts.ConcatList)
	if err := fileutil.WriteFileAtomic(listPath, []byte(ffmpeg.ConcatList(clips)), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write concat list", listPath, err)
	}
	if err := fileutil.WriteFileAtomic(layout.Path(artifacts.ImageVideoLog), []byte(clipLog(entries)), 0o644); err != nil {
		logging.WarnWithContext(h.logger, "failed to write clip log", "clip_log_failed", logging.Error(err))
	}

	sequence := layout.Path(artifacts.ImageSequenceVideo)
	if err := h.renderer.Concat(ctx, listPath, sequence); err != nil {
		return err
	}

	audioSeconds, err := h.probe.Duration(ctx, layout.Path(artifacts.NarrationAudio))
	if err != nil {
		return err
	}
	hold := audioSeconds + float64(h.cfg.Video.TailPadding)
	final := layout.Path(artifacts.FinalVideo)
	if err := h.renderer.Mux(ctx, sequence, layout.Path(format.Narration), final, format.Width, format.Height, hold); err != nil {
		return err
	}
	result, err := ffprobe.VerifyRender(ctx, h.probe.Inspect, final, format.Width, format.Height)
	if err != nil {
		return err
	}
	h.logger.Info("final video rendered",
		logging.String(logging.FieldEventType, "compose_complete"),
		logging.String("output", final),
		logging.Float64("audio_seconds", audioSeconds),
		logging.Float64("video_seconds", result.DurationSeconds()),
		logging.Int("size_bytes", int(result.SizeBytes())),
	)

	h.publish(ctx, job)
	return nil
}

// ensureBackground copies the format's background into the output folder
// unless a copy is already there.
func (h *Handler) ensureBackground(layout artifacts.Layout, format artifacts.VideoFormat) (string, error) {
	local := layout.Path(format.Background)
	if fileutil.NonEmptyFile(local) {
		return local, nil
	}
	source := filepath.Join(h.cfg.Paths.AssetsDir, format.Background)
	if err := stage.RequireFile(stageName, source, "add the background image to paths.assets_dir"); err != nil {
		return "", err
	}
	if err := fileutil.CopyFile(source, local); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "copy background", local, err)
	}
	return local, nil
}

// ensureTitle writes a default youtubetitle.txt when step 1 left none.
func (h *Handler) ensureTitle(job *stage.Job) {
	path := job.Layout.Path(artifacts.YouTubeTitle)
	if fileutil.NonEmptyFile(path) {
		return
	}
	title := strings.TrimSpace(job.Params.Topic)
	if title == "" {
		title = textutil.TitleFromSlug(job.Layout.Slug)
	}
	content := title + "\nAuto-generated educational video.\n"
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		logging.WarnWithContext(h.logger, "failed to write default title", "title_write_failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

func (h *Handler) renderClips(ctx context.Context, layout artifacts.Layout, background string, entries []Entry) ([]string, error) {
	overlaid := make(map[int]string)
	overlayDir := layout.Path(artifacts.OverlaidDir)
	segmentDir := layout.Path(artifacts.SegmentsDir)
	size := h.cfg.Video.OverlaySize

	clips := make([]string, 0, len(entries))
	for _, entry := range entries {
		overlay, ok := overlaid[entry.Image]
		if !ok {
			overlay = filepath.Join(overlayDir, artifacts.ImageName(entry.Image)+".png")
			if err := h.renderer.Overlay(ctx, background, layout.ImagePath(entry.Image), overlay, size); err != nil {
				return nil, err
			}
			overlaid[entry.Image] = overlay
		}
		clip := filepath.Join(segmentDir, entry.ClipName())
		if err := h.renderer.Clip(ctx, overlay, clip, entry.Duration()); err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func clipLog(entries []Entry) string {
	var b strings.Builder
	for _, entry := range entries {
		kind := "segment"
		if entry.Gap {
			kind = "gap"
		}
		fmt.Fprintf(&b, "%s %s <- %s.png %s-%s (%ss)\n",
			kind, entry.ClipName(), artifacts.ImageName(entry.Image),
			ffmpeg.Seconds(entry.Start), ffmpeg.Seconds(entry.End), ffmpeg.Seconds(entry.Duration()))
	}
	return b.String()
}

func (h *Handler) publish(ctx context.Context, job *stage.Job) {
	if h.publisher == nil || !h.publisher.Enabled() {
		return
	}
	defer func() {
		if err := h.publisher.Close(); err != nil {
			h.logger.Debug("publisher close failed", logging.Error(err))
		}
	}()
	result, err := h.publisher.Publish(ctx, job)
	if err != nil {
		logging.WarnWithContext(h.logger, "publishing failed", "publish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the workflow output falls back to the placeholder video url"),
			logging.String(logging.FieldErrorHint, "re-run with `lessonreel step upload` once fixed"),
		)
		return
	}
	h.logger.Info("published",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.String("video_url", result.VideoURL),
		logging.Int("objects", len(result.Objects)),
	)
}

func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.cfg == nil || h.renderer == nil || !h.probe.Ready() {
		return stage.Unhealthy(stageName, "not configured")
	}
	name := artifacts.FormatFor("").Background
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.AssetsDir, name)); err != nil {
		return stage.Unhealthy(stageName, "background missing: "+name)
	}
	return stage.Healthy(stageName)
}
