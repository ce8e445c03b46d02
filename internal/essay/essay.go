package essay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/docx"
	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/services/llm"
	"lessonreel/internal/stage"
	"lessonreel/internal/transcript"
)

const stageName = "essay"

// QuizQuestion is one multiple-choice question about the essay.
type QuizQuestion struct {
	Question string   `json:"question" jsonschema_description:"The question text"`
	Options  []string `json:"options" jsonschema_description:"Answer choices"`
	Answer   string   `json:"answer" jsonschema_description:"The correct choice, copied verbatim from options"`
}

// Quiz is the quiz_data.json document handed back with the workflow output.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// Draft is the structured essay the chat model returns.
type Draft struct {
	Title       string         `json:"title" jsonschema_description:"Short title for the essay"`
	ArticleText string         `json:"article_text" jsonschema_description:"The essay body; paragraphs separated by blank lines"`
	Quiz        []QuizQuestion `json:"quiz" jsonschema_description:"Multiple-choice questions about the essay; empty when a quiz does not fit"`
}

// Record is the essay.json document later steps read.
type Record struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LoadRecord reads essay.json.
func LoadRecord(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse %s: %w", path, err)
	}
	return rec, nil
}

// Handler implements step 1: the essay, its narration and the narration
// timestamps.
type Handler struct {
	cfg         *config.Config
	client      *llm.Client
	transcriber Transcriber
	logger      *slog.Logger
}

// NewHandler wires the essay step.
func NewHandler(cfg *config.Config, client *llm.Client, transcriber Transcriber, logger *slog.Logger) *Handler {
	h := &Handler{cfg: cfg, client: client, transcriber: transcriber}
	h.SetLogger(logger)
	return h
}

// SetLogger updates the handler's logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	h.logger = logging.NewComponentLogger(logger, stageName)
}

func (h *Handler) Prepare(_ context.Context, job *stage.Job) error {
	return stage.EnsureOutputDir(stageName, job)
}

func (h *Handler) Execute(ctx context.Context, job *stage.Job) error {
	layout := job.Layout

	record, err := h.ensureEssay(ctx, job)
	if err != nil {
		return err
	}
	if err := h.ensureNarration(ctx, job, record.Body); err != nil {
		return err
	}
	if err := h.ensureTimestamps(ctx, layout, record.Body); err != nil {
		return err
	}
	return nil
}

// ensureEssay generates the essay and its side artifacts unless essay.json
// already exists from an earlier run.
func (h *Handler) ensureEssay(ctx context.Context, job *stage.Job) (Record, error) {
	layout := job.Layout
	jsonPath := layout.Path(artifacts.EssayJSON)
	if fileutil.NonEmptyFile(jsonPath) {
		record, err := LoadRecord(jsonPath)
		if err == nil && strings.TrimSpace(record.Body) != "" {
			h.logger.Info("essay already generated; reusing",
				logging.String(logging.FieldEventType, "essay_reused"),
				logging.String("path", jsonPath),
			)
			return record, nil
		}
		logging.WarnWithContext(h.logger, "existing essay.json unusable; regenerating", "essay_reuse_failed",
			logging.String("path", jsonPath),
			logging.Error(err),
		)
	}

	req := job.Params.Request
	draft, err := llm.CompleteStructured[Draft](ctx, h.client, llm.ChatRequest{
		Model:       h.cfg.OpenAI.ChatModel,
		System:      SystemMessage(req.EmotionStyle),
		User:        UserPrompt(req),
		Temperature: 0.7,
		MaxTokens:   4000,
	}, "essay", "Educational essay with a title and an optional quiz")
	if err != nil {
		return Record{}, err
	}
	article := strings.TrimSpace(draft.ArticleText)
	if article == "" {
		return Record{}, services.Wrap(services.ErrValidation, stageName, "generate", "model returned no article text", nil)
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = req.Topic
	}
	h.logger.Info("essay generated",
		logging.String(logging.FieldEventType, "essay_generated"),
		logging.Int("characters", len(article)),
		logging.Int("quiz_questions", len(draft.Quiz)),
	)

	if err := docx.Write(layout.Path(artifacts.EssayDocx), title, docx.SplitParagraphs(article)); err != nil {
		return Record{}, services.Wrap(services.ErrExternalTool, stageName, "write docx", "", err)
	}

	metadata := h.visualMetadata(ctx, req.Topic, article)
	if err := writeText(layout.Path(artifacts.EssayMetadata), metadata); err != nil {
		return Record{}, err
	}

	var lessonDate time.Time
	if job.UseDateContext {
		lessonDate = req.Date()
	}
	if err := writeText(layout.Path(artifacts.YouTubeTitle), title); err != nil {
		return Record{}, err
	}
	if err := writeText(layout.Path(artifacts.YouTubeDescription), Description(title, req.Slug, lessonDate)); err != nil {
		return Record{}, err
	}

	if len(draft.Quiz) > 0 {
		if err := fileutil.WriteJSONAtomic(layout.Path(artifacts.QuizData), Quiz{Questions: draft.Quiz}); err != nil {
			return Record{}, services.Wrap(services.ErrExternalTool, stageName, "write quiz", "", err)
		}
	}

	// essay.json goes last: its presence marks the essay phase as complete.
	record := Record{Slug: req.Slug, Title: title, Body: article}
	if err := fileutil.WriteJSONAtomic(layout.Path(artifacts.EssayJSON), record); err != nil {
		return Record{}, services.Wrap(services.ErrExternalTool, stageName, "write essay json", "", err)
	}
	return record, nil
}

func (h *Handler) visualMetadata(ctx context.Context, topic, article string) string {
	metadata, err := h.client.Complete(ctx, llm.ChatRequest{
		Model:       h.cfg.OpenAI.MetadataModel,
		System:      metadataSystemMessage,
		User:        MetadataPrompt(topic, article),
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return FallbackMetadata(topic)
		}
		logging.WarnWithContext(h.logger, "visual metadata extraction failed; using topic", "metadata_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "illustrations use the topic as their only shared context"),
		)
		return FallbackMetadata(topic)
	}
	return metadata
}

func (h *Handler) ensureNarration(ctx context.Context, job *stage.Job, article string) error {
	path := job.Layout.Path(artifacts.NarrationAudio)
	if fileutil.NonEmptyFile(path) {
		h.logger.Info("narration already exists; skipping", logging.String(logging.FieldEventType, "narration_reused"))
		return nil
	}
	voice := job.Params.TTSVoice
	if voice == "" {
		voice = h.cfg.OpenAI.TTSVoice
	}
	h.logger.Info("creating narration",
		logging.String(logging.FieldEventType, "narration_start"),
		logging.String("voice", voice),
		logging.String("model", h.cfg.OpenAI.TTSModel),
	)
	if err := h.client.SynthesizeToFile(ctx, article, voice, path); err != nil {
		return err
	}
	return nil
}

func (h *Handler) ensureTimestamps(ctx context.Context, layout artifacts.Layout, article string) error {
	path := layout.Path(artifacts.Timestamps)
	if fileutil.NonEmptyFile(path) {
		h.logger.Info("timestamps already exist; skipping", logging.String(logging.FieldEventType, "timestamps_reused"))
		return nil
	}
	segments, err := h.transcriber.Transcribe(ctx, TranscriptionRequest{
		AudioPath: layout.Path(artifacts.NarrationAudio),
		WorkDir:   layout.Path(artifacts.LogsDir),
		Text:      article,
	})
	if err != nil {
		return err
	}
	if err := transcript.WriteFile(path, segments); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write timestamps", "", err)
	}
	h.logger.Info("timestamps written",
		logging.String(logging.FieldEventType, "timestamps_written"),
		logging.Int("segments", len(segments)),
	)
	return nil
}

func (h *Handler) HealthCheck(context.Context) stage.Health {
	if h.cfg == nil || h.client == nil {
		return stage.Unhealthy(stageName, "not configured")
	}
	if strings.TrimSpace(h.cfg.OpenAI.APIKey) == "" {
		return stage.Unhealthy(stageName, "openai api key missing")
	}
	if h.transcriber == nil {
		return stage.Unhealthy(stageName, "no transcription engine")
	}
	return stage.Healthy(stageName)
}

func writeText(path, content string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "write", path, err)
	}
	return nil
}
