package essay

import (
	"context"

	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/services"
	"lessonreel/internal/services/llm"
	"lessonreel/internal/services/whisperx"
	"lessonreel/internal/transcript"
)

// TranscriptionRequest identifies the narration to time.
type TranscriptionRequest struct {
	AudioPath string
	WorkDir   string
	Text      string
}

// Transcriber produces timed segments for a narration file.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) ([]transcript.Segment, error)
}

// OpenAITranscriber uses the hosted transcription endpoint.
type OpenAITranscriber struct {
	Client *llm.Client
}

func (t OpenAITranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) ([]transcript.Segment, error) {
	result, err := t.Client.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}
	if len(result.Segments) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "essay", "transcribe", "transcription returned no segments", nil)
	}
	return result.Segments, nil
}

// WhisperXTranscriber runs WhisperX locally.
type WhisperXTranscriber struct {
	Service *whisperx.Service
}

func (t WhisperXTranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) ([]transcript.Segment, error) {
	return t.Service.Transcribe(ctx, req.AudioPath, req.WorkDir)
}

// FixedTranscriber splits the narration into equal windows and spreads the
// text across them. It needs no speech model.
type FixedTranscriber struct {
	Probe   ffprobe.DurationFunc
	Seconds float64
}

func (t FixedTranscriber) Transcribe(ctx context.Context, req TranscriptionRequest) ([]transcript.Segment, error) {
	duration, err := t.Probe(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}
	segments := transcript.FixedSegments(duration, t.Seconds, req.Text)
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "essay", "transcribe", "narration has no duration", nil)
	}
	return segments, nil
}
