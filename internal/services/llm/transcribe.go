package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"

	"lessonreel/internal/transcript"
)

// Transcription is the timed transcript of an audio file.
type Transcription struct {
	Text     string
	Duration float64
	Segments []transcript.Segment
}

type verboseTranscription struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio at path and returns segment-level timestamps.
func (c *Client) Transcribe(ctx context.Context, path string) (Transcription, error) {
	const op = "audio.transcribe"
	var result Transcription
	if err := c.requireKey(op); err != nil {
		return result, err
	}

	err := c.do(ctx, op, func(ctx context.Context) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer file.Close()

		resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:           file,
			Model:          openai.AudioModel(c.cfg.TranscriptionModel),
			ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		})
		if err != nil {
			return err
		}
		parsed, err := parseVerbose(resp.RawJSON())
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	return result, err
}

func parseVerbose(raw string) (Transcription, error) {
	var payload verboseTranscription
	if err := DecodeLLMJSON(raw, &payload); err != nil {
		return Transcription{}, fmt.Errorf("parse transcription: %w", err)
	}
	result := Transcription{
		Text:     strings.TrimSpace(payload.Text),
		Duration: payload.Duration,
	}
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, transcript.Segment{
			Index: len(result.Segments) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return result, nil
}
