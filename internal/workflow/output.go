package workflow

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/docx"
	"lessonreel/internal/essay"
	"lessonreel/internal/logging"
	"lessonreel/internal/params"
)

// Placeholders used when an artifact cannot be read.
const (
	PlaceholderYouTubeURL  = "https://youtube.com/placeholder"
	PlaceholderArticleText = "Article text could not be extracted"
)

// Output is the document written once after every step succeeds.
type Output struct {
	Success      bool            `json:"success"`
	WorkflowID   string          `json:"workflowId"`
	YouTubeURL   string          `json:"youtubeUrl"`
	ArticleText  string          `json:"articleText"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	QuizData     json.RawMessage `json:"quizData"`
	Metadata     OutputMetadata  `json:"metadata"`
}

// OutputMetadata identifies the lesson an Output belongs to.
type OutputMetadata struct {
	Topic        string `json:"topic"`
	Slug         string `json:"slug"`
	OutputFolder string `json:"outputFolder"`
}

// OutputPath derives the output document path from the caller's params path:
// a trailing "_params.json" becomes "_output.json", anything else gets
// "_output.json" appended to its stem.
func OutputPath(paramsPath string) string {
	if stem, ok := strings.CutSuffix(paramsPath, "_params.json"); ok {
		return stem + "_output.json"
	}
	return strings.TrimSuffix(paramsPath, filepath.Ext(paramsPath)) + "_output.json"
}

// ExtractOutput gathers the published artifacts of a finished lesson. Each
// field falls back independently; extraction never fails.
func ExtractOutput(layout artifacts.Layout, req params.Request, workflowID string, logger *slog.Logger) Output {
	return Output{
		Success:      true,
		WorkflowID:   workflowID,
		YouTubeURL:   youtubeURL(layout, logger),
		ArticleText:  articleText(layout, logger),
		ThumbnailURL: artifacts.ThumbnailURL(req.Slug),
		QuizData:     quizData(layout, logger),
		Metadata: OutputMetadata{
			Topic:        req.Topic,
			Slug:         req.Slug,
			OutputFolder: layout.Dir(),
		},
	}
}

func youtubeURL(layout artifacts.Layout, logger *slog.Logger) string {
	path := layout.Path(artifacts.YouTubeURL)
	f, err := os.Open(path)
	if err != nil {
		logFallback(logger, "youtube_url", path, err)
		return PlaceholderYouTubeURL
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			if isYouTubeURL(line) {
				return line
			}
			break
		}
	}
	logFallback(logger, "youtube_url", path, scanner.Err())
	return PlaceholderYouTubeURL
}

func isYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

func articleText(layout artifacts.Layout, logger *slog.Logger) string {
	jsonPath := layout.Path(artifacts.EssayJSON)
	rec, err := essay.LoadRecord(jsonPath)
	if err == nil && strings.TrimSpace(rec.Body) != "" {
		return strings.TrimSpace(rec.Body)
	}
	docPath := layout.Path(artifacts.EssayDocx)
	text, docErr := docx.ArticleText(docPath)
	if docErr == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if docErr == nil {
		docErr = err
	}
	logFallback(logger, "article_text", docPath, docErr)
	return PlaceholderArticleText
}

func quizData(layout artifacts.Layout, logger *slog.Logger) json.RawMessage {
	path := layout.Path(artifacts.QuizData)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logFallback(logger, "quiz_data", path, err)
		}
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		logFallback(logger, "quiz_data", path, nil)
		return nil
	}
	return json.RawMessage(data)
}

func logFallback(logger *slog.Logger, field, path string, err error) {
	attrs := []logging.Attr{
		logging.String("field", field),
		logging.String("artifact", path),
		logging.String(logging.FieldImpact, "output uses a placeholder for this field"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(logger, "artifact extraction fell back", "output_fallback", attrs...)
}
