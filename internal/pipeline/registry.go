package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"lessonreel/internal/composition"
	"lessonreel/internal/config"
	"lessonreel/internal/essay"
	"lessonreel/internal/illustration"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/narration"
	"lessonreel/internal/publish"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
)

// Step names, as accepted by `lessonreel step`.
const (
	StepEssay          = "essay"
	StepImages         = "images"
	StepNarrationVideo = "narration-video"
	StepCompose        = "compose"
	StepUpload         = "upload"
)

// Step describes one numbered workflow step.
type Step struct {
	Index               int
	Name                string
	Description         string
	RequiresDateContext bool
}

var steps = []Step{
	{Index: 1, Name: StepEssay, Description: "essay, narration audio and timestamps", RequiresDateContext: true},
	{Index: 2, Name: StepImages, Description: "illustration prompts, images and thumbnail"},
	{Index: 3, Name: StepNarrationVideo, Description: "background and narration video"},
	{Index: 4, Name: StepCompose, Description: "final video and publishing", RequiresDateContext: true},
}

// Steps returns the fixed, ordered workflow steps.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// StepNames lists every name `lessonreel step` accepts.
func StepNames() []string {
	names := make([]string, 0, len(steps)+1)
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return append(names, StepUpload)
}

// NewHandler builds the stage handler for name from configuration.
func NewHandler(cfg *config.Config, name string, logger *slog.Logger) (stage.Handler, error) {
	switch strings.TrimSpace(name) {
	case StepEssay:
		client := NewLLMClient(cfg)
		return essay.NewHandler(cfg, client, NewTranscriber(cfg, client), logger), nil
	case StepImages:
		return illustration.NewHandler(cfg, NewLLMClient(cfg), logger), nil
	case StepNarrationVideo:
		return narration.NewHandler(cfg, NewRenderer(cfg, logger), ffprobe.NewProbe(cfg.FFprobeBinary()), logger), nil
	case StepCompose:
		var publisher composition.Publisher
		if p := NewPublisher(cfg, logger); p.Enabled() {
			publisher = p
		}
		return composition.NewHandler(cfg, NewRenderer(cfg, logger), ffprobe.NewProbe(cfg.FFprobeBinary()), publisher, logger), nil
	case StepUpload:
		return publish.NewHandler(NewPublisher(cfg, logger)), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "", "step", fmt.Sprintf("unknown step %q (want one of %s)", name, strings.Join(StepNames(), ", ")), nil)
	}
}

// NewPublisher builds the publisher with the configured retry policy.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *publish.Publisher {
	return publish.New(cfg, logger, publish.WithRetryPolicy(RetryPolicy(cfg)))
}

// Handlers builds every handler, keyed by step name, for health checks.
func Handlers(cfg *config.Config, logger *slog.Logger) map[string]stage.Handler {
	handlers := make(map[string]stage.Handler, len(steps)+1)
	for _, name := range StepNames() {
		handler, err := NewHandler(cfg, name, logger)
		if err == nil {
			handlers[name] = handler
		}
	}
	return handlers
}
