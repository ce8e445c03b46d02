package illustration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/illustration"
	"lessonreel/internal/logging"
	"lessonreel/internal/params"
	"lessonreel/internal/pipeline"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
	"lessonreel/internal/testsupport"
	"lessonreel/internal/transcript"
)

func setup(t *testing.T, texts ...string) (*illustration.Handler, *config.Config, *stage.Job, *testsupport.FakeOpenAI) {
	t.Helper()
	fake := testsupport.NewFakeOpenAI(t)
	cfg := testsupport.NewConfig(t, testsupport.WithOpenAIBaseURL(fake.URL))
	req := params.Request{Topic: "Ocean tides", Slug: "ocean-tides", LessonDate: "2026-03-14", ReadingLength: 60}
	job := &stage.Job{
		Params: params.WorkflowParams{Request: req, WorkflowID: "wf-1"},
		Layout: artifacts.New(cfg.Paths.WorkspaceDir, req.Slug),
	}
	segments := make([]transcript.Segment, 0, len(texts))
	for i, text := range texts {
		segments = append(segments, transcript.Segment{Index: i + 1, Start: float64(i) * 2, End: float64(i+1) * 2, Text: text})
	}
	if err := transcript.WriteFile(job.Layout.Path(artifacts.Timestamps), segments); err != nil {
		t.Fatalf("write timestamps: %v", err)
	}
	testsupport.WriteText(t, job.Layout.Path(artifacts.EssayMetadata), "Setting: a harbour at dusk.")
	handler := illustration.NewHandler(cfg, pipeline.NewLLMClient(cfg), logging.NewNop())
	return handler, cfg, job, fake
}

func execute(t *testing.T, handler *illustration.Handler, job *stage.Job) error {
	t.Helper()
	ctx := context.Background()
	if err := handler.Prepare(ctx, job); err != nil {
		return err
	}
	return handler.Execute(ctx, job)
}

func TestExecuteCreatesImagesAndThumbnail(t *testing.T) {
	handler, cfg, job, fake := setup(t, "The moon rises over the sea.", "Water climbs the harbour wall.", "Boats settle on the mud.")

	if err := execute(t, handler, job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	layout := job.Layout
	for i := 1; i <= 3; i++ {
		image := testsupport.ReadText(t, layout.ImagePath(i))
		if !strings.HasPrefix(image, "PNG:A detailed illustration") || !strings.Contains(image, "Essay Metadata:\nSetting: a harbour at dusk.") {
			t.Fatalf("unexpected image %d content: %q", i, image)
		}
		if prompt := testsupport.ReadText(t, layout.ImagePromptPath(i)); !strings.HasPrefix(prompt, "A detailed illustration") {
			t.Fatalf("unexpected prompt %d: %q", i, prompt)
		}
	}
	if fake.Calls("images") != 3 || fake.Calls("chat") != 3 {
		t.Fatalf("unexpected calls: images=%d chat=%d", fake.Calls("images"), fake.Calls("chat"))
	}

	prompts := strings.Split(strings.TrimSpace(testsupport.ReadText(t, layout.Path(artifacts.GeneratedPrompts))), "\n")
	if len(prompts) != 3 || !strings.HasPrefix(prompts[0], "00001.png -> ") || !strings.HasPrefix(prompts[2], "00003.png -> ") {
		t.Fatalf("unexpected prompts file: %q", prompts)
	}
	summary := testsupport.ReadText(t, layout.Path(artifacts.ImageSummary))
	for _, want := range []string{"Total Segments: 3", "Images Created: 3", "Already Existed (Skipped): 0", "Failed: 0"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q: %q", want, summary)
		}
	}

	first := testsupport.ReadText(t, layout.ImagePath(1))
	if got := testsupport.ReadText(t, layout.Thumbnail()); got != first {
		t.Fatalf("thumbnail does not match first image")
	}
	if got := testsupport.ReadText(t, filepath.Join(cfg.Paths.PublicImagesDir, "ocean-tides.png")); got != first {
		t.Fatalf("public thumbnail does not match first image")
	}
}

func TestExecuteSkipsExistingImages(t *testing.T) {
	handler, _, job, fake := setup(t, "The moon rises over the sea.", "Water climbs the harbour wall.")
	testsupport.WriteText(t, job.Layout.ImagePath(2), "existing")
	testsupport.WriteText(t, job.Layout.ImagePromptPath(2), "kept prompt")

	if err := execute(t, handler, job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if fake.Calls("images") != 1 {
		t.Fatalf("expected one image request, got %d", fake.Calls("images"))
	}
	if got := testsupport.ReadText(t, job.Layout.ImagePath(2)); got != "existing" {
		t.Fatalf("existing image overwritten: %q", got)
	}
	if prompts := testsupport.ReadText(t, job.Layout.Path(artifacts.GeneratedPrompts)); !strings.Contains(prompts, "00002.png -> kept prompt") {
		t.Fatalf("expected kept prompt in prompts file: %q", prompts)
	}
	if summary := testsupport.ReadText(t, job.Layout.Path(artifacts.ImageSummary)); !strings.Contains(summary, "Already Existed (Skipped): 1") {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestExecuteFailsWhenAnyImageFails(t *testing.T) {
	handler, _, job, fake := setup(t, "The moon rises over the sea.", "tsunami waves reach the town.")
	fake.FailImagesContaining("tsunami")

	err := execute(t, handler, job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 of 2 images failed") {
		t.Fatalf("unexpected error message: %v", err)
	}
	if _, statErr := os.Stat(job.Layout.ImagePath(1)); statErr != nil {
		t.Fatalf("expected the healthy image to be kept: %v", statErr)
	}
	if summary := testsupport.ReadText(t, job.Layout.Path(artifacts.ImageSummary)); !strings.Contains(summary, "Failed: 1") {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if _, statErr := os.Stat(job.Layout.Thumbnail()); !os.IsNotExist(statErr) {
		t.Fatalf("thumbnail must not be published for a failed step: %v", statErr)
	}
}

func TestExecuteConcurrentWritesEveryImage(t *testing.T) {
	handler, cfg, job, fake := setup(t, "One.", "Two.", "Three.", "Four.", "Five.")
	cfg.Images.Concurrency = 3

	if err := execute(t, handler, job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := os.Stat(job.Layout.ImagePath(i)); err != nil {
			t.Fatalf("image %d missing: %v", i, err)
		}
	}
	if fake.Calls("images") != 5 {
		t.Fatalf("unexpected image calls: %d", fake.Calls("images"))
	}
	prompts := strings.Split(strings.TrimSpace(testsupport.ReadText(t, job.Layout.Path(artifacts.GeneratedPrompts))), "\n")
	if len(prompts) != 5 || !strings.HasPrefix(prompts[4], "00005.png -> ") {
		t.Fatalf("prompts out of order: %q", prompts)
	}
}

func TestPrepareRequiresTimestamps(t *testing.T) {
	handler, _, job, _ := setup(t, "The moon rises over the sea.")
	if err := os.Remove(job.Layout.Path(artifacts.Timestamps)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	err := handler.Prepare(context.Background(), job)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
