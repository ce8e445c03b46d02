package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"lessonreel/internal/services"
	"lessonreel/internal/textutil"
)

// DateLayout is the lessonDate format (calendar date, no time zone).
const DateLayout = "2006-01-02"

// Video formats accepted in Request.VideoFormat.
const (
	FormatLandscape = "landscape"
	FormatPortrait  = "portrait"
	FormatSquare    = "square"
)

// Request is the input a caller submits to start a workflow. It is immutable
// once accepted.
type Request struct {
	Topic         string `json:"topic"`
	Slug          string `json:"slug"`
	LessonDate    string `json:"lessonDate"`
	ReadingLength int    `json:"readingLength"`
	Prompt        string `json:"prompt,omitempty"`
	EmotionStyle  string `json:"emotionStyle,omitempty"`
	TTSVoice      string `json:"ttsVoice,omitempty"`
	VideoFormat   string `json:"videoFormat,omitempty"`
}

// WorkflowParams is the per-workflow document handed to every step process.
// The lesson date travels here instead of through a shared file.
type WorkflowParams struct {
	Request
	WorkflowID string    `json:"workflowId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Normalize trims whitespace and lowercases the enumerated fields.
func (r *Request) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Slug = strings.TrimSpace(r.Slug)
	r.LessonDate = strings.TrimSpace(r.LessonDate)
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.EmotionStyle = strings.ToLower(strings.TrimSpace(r.EmotionStyle))
	r.TTSVoice = strings.ToLower(strings.TrimSpace(r.TTSVoice))
	r.VideoFormat = strings.ToLower(strings.TrimSpace(r.VideoFormat))
}

// Validate reports the first problem with the request as an ErrValidation.
func (r Request) Validate() error {
	if r.Topic == "" {
		return invalid("topic is required")
	}
	if err := textutil.ValidateIdentifier("slug", r.Slug); err != nil {
		return invalid(err.Error())
	}
	if r.LessonDate == "" {
		return invalid("lessonDate is required")
	}
	if _, err := time.Parse(DateLayout, r.LessonDate); err != nil {
		return invalid(fmt.Sprintf("lessonDate %q is not a YYYY-MM-DD date", r.LessonDate))
	}
	if r.ReadingLength <= 0 {
		return invalid(fmt.Sprintf("readingLength must be positive, got %d", r.ReadingLength))
	}
	switch r.VideoFormat {
	case "", FormatLandscape, FormatPortrait, FormatSquare:
	default:
		return invalid(fmt.Sprintf("videoFormat %q is not one of landscape, portrait, square", r.VideoFormat))
	}
	return nil
}

// Format returns the requested video format, defaulting to landscape.
func (r Request) Format() string {
	if r.VideoFormat == "" {
		return FormatLandscape
	}
	return r.VideoFormat
}

// Date returns the parsed lesson date. Callers should have validated the request.
func (r Request) Date() time.Time {
	date, _ := time.Parse(DateLayout, r.LessonDate)
	return date
}

// LoadRequest reads and validates a caller-supplied request file. Fields this
// package does not know are ignored since callers often send extra context.
func LoadRequest(path string) (Request, error) {
	var req Request
	if err := decodeFile(path, &req, false); err != nil {
		return Request{}, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Load reads a workflow params file written by Store.Save. Unknown fields are
// rejected.
func Load(path string) (WorkflowParams, error) {
	var wp WorkflowParams
	if err := decodeFile(path, &wp, true); err != nil {
		return WorkflowParams{}, err
	}
	if err := textutil.ValidateIdentifier("workflowId", wp.WorkflowID); err != nil {
		return WorkflowParams{}, invalid(err.Error())
	}
	if err := wp.Validate(); err != nil {
		return WorkflowParams{}, err
	}
	return wp, nil
}

func decodeFile(path string, target any, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrConfiguration, "params", "read", fmt.Sprintf("params file %s does not exist", path), nil)
		}
		return services.Wrap(services.ErrConfiguration, "params", "read", path, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(target); err != nil {
		return services.Wrap(services.ErrValidation, "params", "decode", path, err)
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "params", "validate", message, nil)
}
