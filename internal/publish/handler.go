package publish

import (
	"context"
	"log/slog"
	"strings"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
)

const stageName = "upload"

// Handler runs publishing as a standalone step for an already composed
// workflow. Unlike publishing inside step 4, failures fail the step.
type Handler struct {
	publisher *Publisher
}

// NewHandler wraps publisher as a stage handler.
func NewHandler(publisher *Publisher) *Handler {
	return &Handler{publisher: publisher}
}

func (h *Handler) SetLogger(logger *slog.Logger) {
	h.publisher.SetLogger(logger)
}

func (h *Handler) Prepare(_ context.Context, job *stage.Job) error {
	if !h.publisher.Enabled() {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "no destination enabled; set storage.enabled or youtube.enabled", nil)
	}
	return stage.RequireFile(stageName, job.Layout.Path(artifacts.FinalVideo), "run step 4 first")
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	defer h.publisher.Close()
	result, err := h.publisher.Publish(ctx, job)
	if err != nil {
		return err
	}
	h.publisher.logger.Info("publishing complete",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.String("video_url", result.VideoURL),
		logging.String("objects", strings.Join(result.ObjectURLs, ",")),
	)
	return nil
}

func (h *Handler) HealthCheck(context.Context) stage.Health {
	cfg := h.publisher.cfg
	if !h.publisher.Enabled() {
		return stage.Unhealthy(stageName, "no destination enabled")
	}
	if cfg.Storage.Enabled && strings.TrimSpace(cfg.Storage.Bucket) == "" {
		return stage.Unhealthy(stageName, "storage.bucket not set")
	}
	return stage.Healthy(stageName)
}
