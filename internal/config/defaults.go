package config

import "time"

const (
	defaultConfigPath         = "~/.config/lessonreel/config.toml"
	defaultWorkspaceDir       = "~/.local/share/lessonreel/workspace"
	defaultParamsDir          = "~/.local/share/lessonreel/params"
	defaultAssetsDir          = "~/.local/share/lessonreel/assets"
	defaultLogDir             = "~/.local/share/lessonreel/logs"
	defaultHistoryPath        = "~/.local/share/lessonreel/history.db"
	defaultYouTubeSecrets     = "~/.config/lessonreel/client_secrets.json"
	defaultYouTubeToken       = "~/.config/lessonreel/youtube_token.json"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultChatModel          = "gpt-4o"
	defaultMetadataModel      = "gpt-4o-mini"
	defaultPromptModel        = "gpt-4o-mini"
	defaultTTSModel           = "tts-1"
	defaultTTSVoice           = "nova"
	defaultMaxTTSChars        = 4000
	defaultImageModel         = "dall-e-3"
	defaultImageSize          = "1024x1024"
	defaultImageQuality       = "standard"
	defaultTranscriptionModel = "whisper-1"
	defaultOpenAITimeout      = 120
	defaultRetryAttempts      = 3
	defaultRetryBaseDelayMS   = 1000
	defaultRetryMaxDelayMS    = 10000
	defaultTranscriptionMode  = TranscriptionOpenAI
	defaultWhisperXModel      = "large-v3"
	defaultImageStyle         = "cinematic editorial illustration"
	defaultImageMode          = "single-scene"
	defaultImageConcurrency   = 2
	defaultMinPromptLength    = 10
	defaultFrameRate          = 30
	defaultVideoCodec         = "libx264"
	defaultAudioCodec         = "aac"
	defaultPixFmt             = "yuv420p"
	defaultOverlaySize        = 1024
	defaultTailPadding        = 2
	defaultPrivacyStatus      = "private"
	defaultCategoryID         = "22"
	defaultStoragePrefix      = "lessons"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			ParamsDir:    defaultParamsDir,
			AssetsDir:    defaultAssetsDir,
			LogDir:       defaultLogDir,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			ChatModel:          defaultChatModel,
			MetadataModel:      defaultMetadataModel,
			PromptModel:        defaultPromptModel,
			TTSModel:           defaultTTSModel,
			TTSVoice:           defaultTTSVoice,
			MaxTTSChars:        defaultMaxTTSChars,
			ImageModel:         defaultImageModel,
			ImageSize:          defaultImageSize,
			ImageQuality:       defaultImageQuality,
			TranscriptionModel: defaultTranscriptionModel,
			TimeoutSeconds:     defaultOpenAITimeout,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			MaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Transcription: Transcription{
			Engine:        defaultTranscriptionMode,
			WhisperXModel: defaultWhisperXModel,
		},
		Images: Images{
			Style:             defaultImageStyle,
			Mode:              defaultImageMode,
			Concurrency:       defaultImageConcurrency,
			MinPromptLength:   defaultMinPromptLength,
			CopyToPublicImage: true,
		},
		Video: Video{
			FrameRate:   defaultFrameRate,
			Codec:       defaultVideoCodec,
			AudioCodec:  defaultAudioCodec,
			PixFmt:      defaultPixFmt,
			OverlaySize: defaultOverlaySize,
			TailPadding: defaultTailPadding,
		},
		YouTube: YouTube{
			ClientSecretsFile: defaultYouTubeSecrets,
			TokenFile:         defaultYouTubeToken,
			PrivacyStatus:     defaultPrivacyStatus,
			CategoryID:        defaultCategoryID,
			Tags:              []string{"education", "lesson"},
		},
		Storage: Storage{
			Prefix: defaultStoragePrefix,
		},
		History: History{
			Path: defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// RetryBaseDelay returns the first backoff interval as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap as a duration.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

// OpenAITimeout returns the per-request timeout for OpenAI calls.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}
