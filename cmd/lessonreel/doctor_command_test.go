package main

import (
	"path/filepath"
	"strings"
	"testing"

	"lessonreel/internal/testsupport"
)

func TestDoctorReportsMissingBackground(t *testing.T) {
	fake := testsupport.NewFakeOpenAI(t)
	_, configPath := setupCLIConfig(t,
		testsupport.WithOpenAIBaseURL(fake.URL),
		testsupport.WithStubbedBinaries("ffmpeg"),
		testsupport.WithFFprobeDuration("1"),
	)

	out, _, err := runCLI(t, []string{"doctor"}, configPath)
	requireExitCode(t, err, 1)
	requireContains(t, out, "lessonreel doctor\n"+strings.Repeat("=", len("lessonreel doctor")))
	requireContains(t, out, "[ERROR]")
}

func TestYouTubeAuthRequiresClientSecrets(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)
	cfg.YouTube.ClientSecretsFile = filepath.Join(t.TempDir(), "client_secret.json")
	writeTestConfig(t, configPath, cfg)
	if _, _, err := runCLI(t, []string{"youtube", "auth", "--code", "abc"}, configPath); err == nil {
		t.Fatal("expected missing client secrets to fail")
	}
}
