package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// DefaultEssay is the structured essay FakeOpenAI returns unless overridden.
const DefaultEssay = `{"title":"Tides Explained","article_text":"The moon pulls on the oceans.\n\nTwice a day the water rises and falls.","quiz":[{"question":"What pulls the tides?","options":["The moon","The wind"],"answer":"The moon"}]}`

// TranscriptSegment is one segment in the fake transcription response.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FakeOpenAI is an httptest server speaking the subset of the OpenAI API the
// pipeline uses.
type FakeOpenAI struct {
	URL string

	mu         sync.Mutex
	essay      string
	metadata   string
	segments   []TranscriptSegment
	failImages string
	calls      map[string]int
}

// SetEssay replaces the structured chat response content.
func (f *FakeOpenAI) SetEssay(content string) {
	f.mu.Lock()
	f.essay = content
	f.mu.Unlock()
}

// SetMetadata replaces the plain chat response for metadata requests.
func (f *FakeOpenAI) SetMetadata(content string) {
	f.mu.Lock()
	f.metadata = content
	f.mu.Unlock()
}

// SetSegments replaces the transcription segments.
func (f *FakeOpenAI) SetSegments(segments []TranscriptSegment) {
	f.mu.Lock()
	f.segments = segments
	f.mu.Unlock()
}

// FailImagesContaining makes image requests whose prompt contains substr
// fail with HTTP 400.
func (f *FakeOpenAI) FailImagesContaining(substr string) {
	f.mu.Lock()
	f.failImages = substr
	f.mu.Unlock()
}

// NewFakeOpenAI starts the fake server and registers its shutdown.
func NewFakeOpenAI(t testing.TB) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{
		essay:    DefaultEssay,
		metadata: "Setting: a rocky coastline. Time: present day.",
		segments: []TranscriptSegment{
			{Start: 0, End: 2.5, Text: "The moon pulls on the oceans."},
			{Start: 2.5, End: 5.0, Text: "Twice a day the water rises and falls."},
		},
		calls: make(map[string]int),
	}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	f.URL = server.URL
	return f
}

// Calls returns how many requests hit the endpoint ("chat", "speech",
// "transcriptions", "images").
func (f *FakeOpenAI) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *FakeOpenAI) record(endpoint string) {
	f.mu.Lock()
	f.calls[endpoint]++
	f.mu.Unlock()
}

func (f *FakeOpenAI) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		f.record("chat")
		f.serveChat(w, r)
	case strings.HasSuffix(r.URL.Path, "/audio/speech"):
		f.record("speech")
		var body struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "MP3:"+body.Input)
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		f.record("transcriptions")
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		segments := f.segments
		f.mu.Unlock()
		end := 0.0
		if len(segments) > 0 {
			end = segments[len(segments)-1].End
		}
		writeJSON(w, map[string]any{"text": "transcript", "duration": end, "segments": segments})
	case strings.HasSuffix(r.URL.Path, "/images/generations"):
		f.record("images")
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		fail := f.failImages
		f.mu.Unlock()
		if fail != "" && strings.Contains(body.Prompt, fail) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"content policy","type":"invalid_request_error"}}`)
			return
		}
		png := base64.StdEncoding.EncodeToString([]byte("PNG:" + body.Prompt))
		writeJSON(w, map[string]any{"created": 1, "data": []any{map[string]any{"b64_json": png}}})
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeOpenAI) serveChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name string `json:"name"`
			} `json:"json_schema"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	essay, metadata := f.essay, f.metadata
	f.mu.Unlock()

	user := ""
	for _, m := range body.Messages {
		if m.Role == "user" {
			user = m.Content
		}
	}
	var content string
	switch {
	case body.ResponseFormat.JSONSchema.Name == "health":
		content = `{"ok":true}`
	case body.ResponseFormat.Type == "json_schema":
		content = essay
	case strings.Contains(user, "illustration"):
		content = fmt.Sprintf("Prompt: A detailed illustration of %s", firstWords(narrationOf(user), 6))
	default:
		content = metadata
	}
	writeJSON(w, map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func narrationOf(prompt string) string {
	if _, after, ok := strings.Cut(prompt, "narration:"); ok {
		return after
	}
	return prompt
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
