package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lessonreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retries are limited to one attempt and logging to JSON at debug level.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OpenAI.APIKey = "test"
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfgVal.Paths.ParamsDir = filepath.Join(base, "params")
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.PublicImagesDir = filepath.Join(base, "public", "images")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "history.db")
	cfgVal.Retry.MaxAttempts = 1
	cfgVal.Retry.BaseDelayMS = 1
	cfgVal.Logging.Format = "json"
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithOpenAIBaseURL points the OpenAI client at a fake server.
func WithOpenAIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.BaseURL = url
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. Each stub writes a placeholder file at its last
// argument, which is where ffmpeg expects its output.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), names...)
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithFFprobeDuration installs an ffprobe stub that reports seconds as the
// container duration of a 1920x1080 video with one audio track.
func WithFFprobeDuration(seconds string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		streams := `[{"index":0,"codec_type":"video","width":1920,"height":1080},{"index":1,"codec_type":"audio"}]`
		script := "#!/bin/sh\necho '{\"streams\":" + streams + ",\"format\":{\"duration\":\"" + seconds + "\",\"size\":\"4096\"}}'\n"
		writeScript(b.t, filepath.Join(binDir, "ffprobe"), script)
		if !strings.Contains(os.Getenv("PATH"), binDir) {
			b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		}
	}
}

// StubBinaries writes output-producing stubs for names into dir and returns
// dir.
func StubBinaries(t testing.TB, dir string, names ...string) string {
	t.Helper()
	script := "#!/bin/sh\nfor last; do :; done\nmkdir -p \"$(dirname \"$last\")\"\necho stub > \"$last\"\n"
	for _, name := range names {
		writeScript(t, filepath.Join(dir, name), script)
	}
	return dir
}

func writeScript(t testing.TB, path, script string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkspaceDir)
}

// WriteScript writes an executable shell script at path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	writeScript(t, path, "#!/bin/sh\n"+body)
	return path
}
