package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lessonreel/internal/config"
)

func TestLookup(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := Lookup([]Binary{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary", Purpose: "testing"},
		{Name: "Blank", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available() || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected status for present binary: %#v", results[0])
	}
	if results[1].Available() || !strings.Contains(results[1].Detail, "clearly-not-present-binary") {
		t.Fatalf("unexpected status for missing binary: %#v", results[1])
	}
	if results[2].Available() || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for blank command: %#v", results[2])
	}
}

func TestForConfigFollowsTranscriptionEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Engine = config.TranscriptionOpenAI
	bins := ForConfig(&cfg)
	if len(bins) != 3 {
		t.Fatalf("expected 3 binaries, got %d", len(bins))
	}
	if bins[0].Command != "ffmpeg" || bins[1].Command != "ffprobe" {
		t.Fatalf("unexpected media binaries: %#v", bins[:2])
	}
	if !bins[2].Optional {
		t.Fatal("uvx should be optional for the openai engine")
	}

	cfg.Transcription.Engine = config.TranscriptionWhisperX
	if bins = ForConfig(&cfg); bins[2].Optional {
		t.Fatal("uvx should be required for the whisperx engine")
	}
}
