package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	WorkspaceDir    string `toml:"workspace_dir"`
	ParamsDir       string `toml:"params_dir"`
	AssetsDir       string `toml:"assets_dir"`
	PublicImagesDir string `toml:"public_images_dir"`
	LogDir          string `toml:"log_dir"`
}

// OpenAI contains connection and model settings for the OpenAI API.
type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	ChatModel          string `toml:"chat_model"`
	MetadataModel      string `toml:"metadata_model"`
	PromptModel        string `toml:"prompt_model"`
	TTSModel           string `toml:"tts_model"`
	TTSVoice           string `toml:"tts_voice"`
	MaxTTSChars        int    `toml:"max_tts_chars"`
	ImageModel         string `toml:"image_model"`
	ImageSize          string `toml:"image_size"`
	ImageQuality       string `toml:"image_quality"`
	TranscriptionModel string `toml:"transcription_model"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Retry bounds every retried external call made by a step.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// Transcription engines.
const (
	TranscriptionOpenAI   = "openai"
	TranscriptionWhisperX = "whisperx"
	TranscriptionFixed    = "fixed"
)

// Transcription selects how narration timestamps are produced.
type Transcription struct {
	Engine              string  `toml:"engine"`
	WhisperXModel       string  `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool    `toml:"whisperx_cuda_enabled"`
	FixedSegmentSeconds float64 `toml:"fixed_segment_seconds"`
}

// Images contains illustration prompt defaults.
type Images struct {
	Style             string   `toml:"style"`
	Mode              string   `toml:"mode"`
	Guidance          string   `toml:"guidance"`
	NegativeGuidance  string   `toml:"negative_guidance"`
	Append            string   `toml:"append"`
	StyleTags         []string `toml:"style_tags"`
	SystemPrompt      string   `toml:"system_prompt"`
	Concurrency       int      `toml:"concurrency"`
	MinPromptLength   int      `toml:"min_prompt_length"`
	CopyToPublicImage bool     `toml:"copy_to_public_images"`
}

// Video contains ffmpeg output settings shared by steps 3 and 4.
type Video struct {
	FrameRate   int    `toml:"frame_rate"`
	Codec       string `toml:"codec"`
	AudioCodec  string `toml:"audio_codec"`
	PixFmt      string `toml:"pix_fmt"`
	OverlaySize int    `toml:"overlay_size"`
	TailPadding int    `toml:"tail_padding_seconds"`
}

// YouTube contains upload settings. Uploading is disabled by default.
type YouTube struct {
	Enabled           bool     `toml:"enabled"`
	ClientSecretsFile string   `toml:"client_secrets_file"`
	TokenFile         string   `toml:"token_file"`
	PrivacyStatus     string   `toml:"privacy_status"`
	CategoryID        string   `toml:"category_id"`
	Tags              []string `toml:"tags"`
}

// Storage contains optional Cloud Storage publishing settings.
type Storage struct {
	Enabled bool   `toml:"enabled"`
	Bucket  string `toml:"bucket"`
	Prefix  string `toml:"prefix"`
}

// History controls the optional SQLite run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Workflow contains orchestrator settings.
type Workflow struct {
	StepCommand []string `toml:"step_command"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lessonreel.
//
// Configuration sections by subsystem:
//   - Paths: workspace, params, assets and log directories
//   - OpenAI: chat, speech, transcription and image models
//   - Retry: bounded retry policy for external calls
//   - Transcription: timestamp engine selection
//   - Images: illustration prompt defaults and fan-out
//   - Video: ffmpeg output settings
//   - YouTube: optional upload after composition
//   - Storage: optional Cloud Storage publishing
//   - History: optional SQLite run ledger
//   - Workflow: step process command
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenAI        OpenAI        `toml:"openai"`
	Retry         Retry         `toml:"retry"`
	Transcription Transcription `toml:"transcription"`
	Images        Images        `toml:"images"`
	Video         Video         `toml:"video"`
	YouTube       YouTube       `toml:"youtube"`
	Storage       Storage       `toml:"storage"`
	History       History       `toml:"history"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory, when
// present, is loaded first so credentials can live outside the TOML file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env without overriding variables already set in the
// environment. A missing file is not an error.
func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("LESSONREEL_DOTENV"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lessonreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every workflow writes into.
// The public images directory is created on a best-effort basis since it
// usually belongs to a separate web project.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.ParamsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.PublicImagesDir) != "" {
		_ = os.MkdirAll(c.Paths.PublicImagesDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for rendering.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
