package illustration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/services/llm"
	"lessonreel/internal/stage"
	"lessonreel/internal/transcript"
)

const stageName = "images"

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

type result struct {
	name    string
	prompt  string
	outcome outcome
	err     error
}

// Handler implements step 2.
type Handler struct {
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
}

// NewHandler wires the illustration step.
func NewHandler(cfg *config.Config, client *llm.Client, logger *slog.Logger) *Handler {
	h := &Handler{cfg: cfg, client: client}
	h.SetLogger(logger)
	return h
}

// SetLogger updates the handler's logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, stageName)
}

func (h *Handler) Prepare(_ context.Context, job *stage.Job) error {
	if err := stage.RequireOutputDir(stageName, job); err != nil {
		return err
	}
	return stage.RequireFile(stageName, job.Layout.Path(artifacts.Timestamps), "run step 1 first")
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	layout := job.Layout
	segments, err := transcript.ParseFile(layout.Path(artifacts.Timestamps))
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "read timestamps", "", err)
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "read timestamps", "timestamp file has no segments", nil)
	}
	if err := os.MkdirAll(layout.Images(), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "create images folder", layout.Images(), err)
	}
	metadata := h.readMetadata(layout)

	h.logger.Info("generating illustrations",
		logging.String(logging.FieldEventType, "images_start"),
		logging.Int("segments", len(segments)),
		logging.Int("concurrency", h.concurrency()),
	)

	results := make([]result, len(segments))
	var group errgroup.Group
	group.SetLimit(h.concurrency())
	for i, segment := range segments {
		group.Go(func() error {
			results[i] = h.illustrate(ctx, layout, i+1, segment, metadata)
			return nil
		})
	}
	group.Wait()

	if err := h.writeReports(layout, results); err != nil {
		return err
	}

	var firstErr error
	failed := 0
	for _, r := range results {
		if r.outcome == outcomeFailed {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
		}
	}
	if failed > 0 {
		return services.Wrap(services.ErrExternalTool, stageName, "generate images",
			fmt.Sprintf("%d of %d images failed", failed, len(results)), firstErr)
	}

	h.publishThumbnail(layout)
	return nil
}

func (h *Handler) concurrency() int {
	if h.cfg.Images.Concurrency > 0 {
		return h.cfg.Images.Concurrency
	}
	return 1
}

func (h *Handler) readMetadata(layout artifacts.Layout) string {
	data, err := os.ReadFile(layout.Path(artifacts.EssayMetadata))
	if err != nil {
		logging.WarnWithContext(h.logger, "essay metadata unavailable", "artifact_missing",
			logging.String("path", layout.Path(artifacts.EssayMetadata)),
			logging.String(logging.FieldImpact, "prompts are generated without shared visual context"),
		)
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (h *Handler) illustrate(ctx context.Context, layout artifacts.Layout, index int, segment transcript.Segment, metadata string) result {
	name := artifacts.ImageName(index) + ".png"
	imagePath := layout.ImagePath(index)
	promptPath := layout.ImagePromptPath(index)

	if fileutil.NonEmptyFile(imagePath) {
		prompt := ""
		if data, err := os.ReadFile(promptPath); err == nil {
			prompt = strings.TrimSpace(string(data))
		}
		h.logger.Debug("image exists; skipping", logging.String("image", name))
		return result{name: name, prompt: prompt, outcome: outcomeSkipped}
	}

	fail := func(err error) result {
		logging.WarnWithContext(h.logger, "image generation failed", "image_failed",
			logging.String("image", name),
			logging.Error(err),
		)
		return result{name: name, outcome: outcomeFailed, err: err}
	}

	raw, err := h.client.Complete(ctx, llm.ChatRequest{
		Model:       h.cfg.OpenAI.PromptModel,
		System:      SystemPrompt(h.cfg.Images),
		User:        UserPrompt(h.cfg.Images, segment.Text),
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return fail(err)
	}
	prompt := llm.StripLabel(raw, "Prompt")
	if len(prompt) < h.cfg.Images.MinPromptLength {
		return fail(services.Wrap(services.ErrValidation, stageName, "prompt",
			fmt.Sprintf("prompt for %s too short: %q", name, prompt), nil))
	}
	prompt = WithMetadata(prompt, metadata)

	image, err := h.client.GenerateImage(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	if err := fileutil.WriteFileAtomic(imagePath, image, 0o644); err != nil {
		return fail(services.Wrap(services.ErrExternalTool, stageName, "save image", imagePath, err))
	}
	if err := fileutil.WriteFileAtomic(promptPath, []byte(prompt), 0o644); err != nil {
		logging.WarnWithContext(h.logger, "failed to save prompt text", "prompt_write_failed",
			logging.String("path", promptPath),
			logging.Error(err),
		)
	}
	h.logger.Info("image created",
		logging.String(logging.FieldEventType, "image_created"),
		logging.String("image", name),
	)
	return result{name: name, prompt: prompt, outcome: outcomeCreated}
}

func (h *Handler) writeReports(layout artifacts.Layout, results []result) error {
	var prompts strings.Builder
	var created, skipped, failed int
	for _, r := range results {
		switch r.outcome {
		case outcomeCreated:
			created++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
		if r.prompt != "" {
			fmt.Fprintf(&prompts, "%s -> %s\n", r.name, strings.ReplaceAll(r.prompt, "\n", " "))
		}
	}
	if err := fileutil.WriteFileAtomic(layout.Path(artifacts.GeneratedPrompts), []byte(prompts.String()), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write prompts", "", err)
	}
	summary := fmt.Sprintf("Total Segments: %d\nImages Created: %d\nAlready Existed (Skipped): %d\nFailed: %d\nGenerated: %s\n",
		len(results), created, skipped, failed, time.Now().Format("2006-01-02 15:04:05"))
	if err := fileutil.WriteFileAtomic(layout.Path(artifacts.ImageSummary), []byte(summary), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write summary", "", err)
	}
	h.logger.Info("illustrations finished",
		logging.String(logging.FieldEventType, "images_complete"),
		logging.Int("created", created),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
	)
	return nil
}

// publishThumbnail copies the first image to <slug>.png and into the public
// images folder. Both copies are best-effort.
func (h *Handler) publishThumbnail(layout artifacts.Layout) {
	first := layout.ImagePath(1)
	if !fileutil.NonEmptyFile(first) {
		return
	}
	targets := []string{layout.Thumbnail()}
	if h.cfg.Images.CopyToPublicImage && h.cfg.Paths.PublicImagesDir != "" {
		targets = append(targets, filepath.Join(h.cfg.Paths.PublicImagesDir, layout.Slug+".png"))
	}
	for _, target := range targets {
		if err := fileutil.CopyFile(first, target); err != nil {
			logging.WarnWithContext(h.logger, "thumbnail copy failed", "thumbnail_copy_failed",
				logging.String("target", target),
				logging.Error(err),
			)
		}
	}
}

func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.cfg == nil || h.client == nil {
		return stage.Unhealthy(stageName, "not configured")
	}
	if strings.TrimSpace(h.cfg.OpenAI.APIKey) == "" {
		return stage.Unhealthy(stageName, "openai api key missing")
	}
	return stage.Healthy(stageName)
}
