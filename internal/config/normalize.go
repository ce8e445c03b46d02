package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeTranscription()
	c.normalizeImages()
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeStorage()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ParamsDir) == "" {
		c.Paths.ParamsDir = defaultParamsDir
	}
	if c.Paths.ParamsDir, err = expandPath(c.Paths.ParamsDir); err != nil {
		return fmt.Errorf("paths.params_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if c.Paths.PublicImagesDir, err = expandPath(strings.TrimSpace(c.Paths.PublicImagesDir)); err != nil {
		return fmt.Errorf("paths.public_images_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		if value, ok := os.LookupEnv("OPENAI_BASE_URL"); ok && strings.TrimSpace(value) != "" {
			c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		} else {
			c.OpenAI.BaseURL = defaultOpenAIBaseURL
		}
	}
	c.OpenAI.ChatModel = strings.TrimSpace(c.OpenAI.ChatModel)
	c.OpenAI.MetadataModel = strings.TrimSpace(c.OpenAI.MetadataModel)
	if c.OpenAI.MetadataModel == "" {
		c.OpenAI.MetadataModel = c.OpenAI.ChatModel
	}
	c.OpenAI.PromptModel = strings.TrimSpace(c.OpenAI.PromptModel)
	if c.OpenAI.PromptModel == "" {
		c.OpenAI.PromptModel = c.OpenAI.ChatModel
	}
	c.OpenAI.TTSVoice = strings.ToLower(strings.TrimSpace(c.OpenAI.TTSVoice))
	if c.OpenAI.TTSVoice == "" {
		c.OpenAI.TTSVoice = defaultTTSVoice
	}
	if c.OpenAI.MaxTTSChars <= 0 {
		c.OpenAI.MaxTTSChars = defaultMaxTTSChars
	}
	c.OpenAI.ImageSize = strings.TrimSpace(c.OpenAI.ImageSize)
	if c.OpenAI.ImageSize == "" {
		c.OpenAI.ImageSize = defaultImageSize
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultTranscriptionMode
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
}

func (c *Config) normalizeImages() {
	c.Images.Style = strings.TrimSpace(c.Images.Style)
	c.Images.Mode = strings.TrimSpace(c.Images.Mode)
	c.Images.Guidance = strings.TrimSpace(c.Images.Guidance)
	c.Images.NegativeGuidance = strings.TrimSpace(c.Images.NegativeGuidance)
	c.Images.Append = strings.TrimSpace(c.Images.Append)
	tags := c.Images.StyleTags[:0]
	for _, tag := range c.Images.StyleTags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	c.Images.StyleTags = tags
	if c.Images.Concurrency <= 0 {
		c.Images.Concurrency = 1
	}
	if c.Images.MinPromptLength <= 0 {
		c.Images.MinPromptLength = defaultMinPromptLength
	}
}

func (c *Config) normalizeYouTube() error {
	var err error
	if c.YouTube.ClientSecretsFile, err = expandPath(strings.TrimSpace(c.YouTube.ClientSecretsFile)); err != nil {
		return fmt.Errorf("youtube.client_secrets_file: %w", err)
	}
	if c.YouTube.TokenFile, err = expandPath(strings.TrimSpace(c.YouTube.TokenFile)); err != nil {
		return fmt.Errorf("youtube.token_file: %w", err)
	}
	c.YouTube.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.YouTube.PrivacyStatus))
	if c.YouTube.PrivacyStatus == "" {
		c.YouTube.PrivacyStatus = defaultPrivacyStatus
	}
	c.YouTube.CategoryID = strings.TrimSpace(c.YouTube.CategoryID)
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = defaultCategoryID
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	command := c.Workflow.StepCommand[:0]
	for _, part := range c.Workflow.StepCommand {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Workflow.StepCommand = command
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
