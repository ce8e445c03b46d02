package workflow_test

import (
	"os"
	"path/filepath"
	"testing"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/docx"
	"lessonreel/internal/params"
	"lessonreel/internal/workflow"
)

func TestOutputPath(t *testing.T) {
	cases := map[string]string{
		"/runs/abc_params.json":  "/runs/abc_output.json",
		"/runs/request.json":     "/runs/request_output.json",
		"/runs/params":           "/runs/params_output.json",
		"relative/x_params.json": "relative/x_output.json",
	}
	for in, want := range cases {
		if got := workflow.OutputPath(in); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractOutputUsesPlaceholders(t *testing.T) {
	layout := artifacts.New(t.TempDir(), "empty")
	req := params.Request{Topic: "Empty", Slug: "empty"}

	out := workflow.ExtractOutput(layout, req, "wf-empty", nil)
	if !out.Success {
		t.Fatal("extraction never changes success")
	}
	if out.YouTubeURL != workflow.PlaceholderYouTubeURL {
		t.Fatalf("unexpected url %q", out.YouTubeURL)
	}
	if out.ArticleText != workflow.PlaceholderArticleText {
		t.Fatalf("unexpected article %q", out.ArticleText)
	}
	if out.QuizData != nil {
		t.Fatalf("expected nil quiz, got %s", out.QuizData)
	}
	if out.ThumbnailURL != "/images/empty.png" || out.Metadata.OutputFolder != layout.Dir() {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestExtractOutputFallsBackToDocx(t *testing.T) {
	layout := artifacts.New(t.TempDir(), "fallback")
	if err := os.MkdirAll(layout.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := docx.Write(layout.Path(artifacts.EssayDocx), "", []string{"First paragraph.", "Second paragraph."}); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	out := workflow.ExtractOutput(layout, params.Request{Slug: "fallback"}, "wf", nil)
	if out.ArticleText != "First paragraph.\n\nSecond paragraph." {
		t.Fatalf("unexpected article %q", out.ArticleText)
	}
}

func TestExtractOutputIgnoresMalformedQuizAndBlankURL(t *testing.T) {
	layout := artifacts.New(t.TempDir(), "broken")
	writeFile(layout.Path(artifacts.QuizData), "{not json")
	writeFile(layout.Path(artifacts.YouTubeURL), "\n\n")
	writeFile(filepath.Join(layout.Dir(), artifacts.EssayJSON), `{"body":"  Body text.  "}`)

	out := workflow.ExtractOutput(layout, params.Request{Slug: "broken"}, "wf", nil)
	if out.QuizData != nil {
		t.Fatalf("expected malformed quiz to be dropped, got %s", out.QuizData)
	}
	if out.YouTubeURL != workflow.PlaceholderYouTubeURL {
		t.Fatalf("unexpected url %q", out.YouTubeURL)
	}
	if out.ArticleText != "Body text." {
		t.Fatalf("unexpected article %q", out.ArticleText)
	}
}

func TestExtractOutputRejectsNonYouTubeURL(t *testing.T) {
	for _, content := range []string{"upload failed: quota\n", "https://example.com/watch?v=1\n", "youtube.com/watch?v=1\n"} {
		layout := artifacts.New(t.TempDir(), "odd")
		writeFile(layout.Path(artifacts.YouTubeURL), content)
		out := workflow.ExtractOutput(layout, params.Request{Slug: "odd"}, "wf", nil)
		if out.YouTubeURL != workflow.PlaceholderYouTubeURL {
			t.Fatalf("content %q: expected placeholder, got %q", content, out.YouTubeURL)
		}
	}

	layout := artifacts.New(t.TempDir(), "ok")
	writeFile(layout.Path(artifacts.YouTubeURL), "\n  https://www.youtube.com/watch?v=abc  \n")
	if out := workflow.ExtractOutput(layout, params.Request{Slug: "ok"}, "wf", nil); out.YouTubeURL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("unexpected url %q", out.YouTubeURL)
	}
}
