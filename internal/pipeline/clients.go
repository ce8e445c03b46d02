package pipeline

import (
	"log/slog"

	"lessonreel/internal/config"
	"lessonreel/internal/essay"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/services"
	"lessonreel/internal/services/ffmpeg"
	"lessonreel/internal/services/llm"
	"lessonreel/internal/services/whisperx"
)

// RetryPolicy builds the policy every external call runs under.
func RetryPolicy(cfg *config.Config) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if delay := cfg.RetryBaseDelay(); delay > 0 {
		policy.BaseDelay = delay
	}
	if delay := cfg.RetryMaxDelay(); delay > 0 {
		policy.MaxDelay = delay
	}
	return policy
}

// NewLLMClient builds the OpenAI client from configuration.
func NewLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		ChatModel:          cfg.OpenAI.ChatModel,
		TTSModel:           cfg.OpenAI.TTSModel,
		TTSVoice:           cfg.OpenAI.TTSVoice,
		MaxTTSChars:        cfg.OpenAI.MaxTTSChars,
		ImageModel:         cfg.OpenAI.ImageModel,
		ImageSize:          cfg.OpenAI.ImageSize,
		ImageQuality:       cfg.OpenAI.ImageQuality,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		Timeout:            cfg.OpenAITimeout(),
	}, llm.WithRetryPolicy(RetryPolicy(cfg)))
}

// NewRenderer builds the ffmpeg renderer from the video settings.
func NewRenderer(cfg *config.Config, logger *slog.Logger) *ffmpeg.Renderer {
	return ffmpeg.NewRenderer(cfg.FFmpegBinary(), ffmpeg.Encoding{
		FrameRate:  cfg.Video.FrameRate,
		Codec:      cfg.Video.Codec,
		AudioCodec: cfg.Video.AudioCodec,
		PixFmt:     cfg.Video.PixFmt,
	}, logger)
}

// NewTranscriber selects the timestamp engine named in the configuration.
func NewTranscriber(cfg *config.Config, client *llm.Client) essay.Transcriber {
	switch cfg.Transcription.Engine {
	case config.TranscriptionWhisperX:
		service := whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
		}, cfg.FFmpegBinary())
		return essay.WhisperXTranscriber{Service: service}
	case config.TranscriptionFixed:
		return essay.FixedTranscriber{Probe: ffprobe.Prober(cfg.FFprobeBinary()), Seconds: cfg.Transcription.FixedSegmentSeconds}
	default:
		return essay.OpenAITranscriber{Client: client}
	}
}
