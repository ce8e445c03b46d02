package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
//
// The OpenAI API key is not required here; steps that call the API check for
// it through RequireOpenAI.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireOpenAI reports a configuration error when no API key is available.
func (c *Config) RequireOpenAI() error {
	if strings.TrimSpace(c.OpenAI.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'lessonreel config init')", defaultPath)
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkspaceDir == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	if c.Paths.ParamsDir == "" {
		return errors.New("paths.params_dir must be set")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.ChatModel == "" {
		return errors.New("openai.chat_model must be set")
	}
	if c.OpenAI.TTSModel == "" {
		return errors.New("openai.tts_model must be set")
	}
	if c.OpenAI.ImageModel == "" {
		return errors.New("openai.image_model must be set")
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	if c.OpenAI.MaxTTSChars > 4096 {
		return fmt.Errorf("openai.max_tts_chars must be at most 4096, got %d", c.OpenAI.MaxTTSChars)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelayMS < 0 || c.Retry.MaxDelayMS < 0 {
		return errors.New("retry delays must be non-negative")
	}
	if c.Retry.MaxDelayMS > 0 && c.Retry.BaseDelayMS > c.Retry.MaxDelayMS {
		return errors.New("retry.base_delay_ms must not exceed retry.max_delay_ms")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case TranscriptionOpenAI, TranscriptionWhisperX, TranscriptionFixed:
	default:
		return fmt.Errorf("transcription.engine: unsupported value %q (want openai, whisperx or fixed)", c.Transcription.Engine)
	}
	if c.Transcription.FixedSegmentSeconds < 0 {
		return errors.New("transcription.fixed_segment_seconds must be non-negative")
	}
	if c.Transcription.Engine == TranscriptionFixed && c.Transcription.FixedSegmentSeconds == 0 {
		return errors.New("transcription.fixed_segment_seconds must be set when transcription.engine is fixed")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FrameRate <= 0 {
		return errors.New("video.frame_rate must be positive")
	}
	if strings.TrimSpace(c.Video.Codec) == "" {
		return errors.New("video.codec must be set")
	}
	if c.Video.OverlaySize <= 0 {
		return errors.New("video.overlay_size must be positive")
	}
	if c.Video.TailPadding < 0 {
		return errors.New("video.tail_padding_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if !c.YouTube.Enabled {
		return nil
	}
	if c.YouTube.ClientSecretsFile == "" {
		return errors.New("youtube.client_secrets_file must be set when youtube.enabled is true")
	}
	if c.YouTube.TokenFile == "" {
		return errors.New("youtube.token_file must be set when youtube.enabled is true")
	}
	switch c.YouTube.PrivacyStatus {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("youtube.privacy_status: unsupported value %q", c.YouTube.PrivacyStatus)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when storage.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
