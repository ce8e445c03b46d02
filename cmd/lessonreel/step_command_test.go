package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/params"
	"lessonreel/internal/services"
	"lessonreel/internal/testsupport"
	"lessonreel/internal/workflow"
)

func writeStepParams(t *testing.T, dir, slug string) string {
	t.Helper()
	doc := params.WorkflowParams{
		Request: params.Request{
			Topic:         "Volcanoes",
			Slug:          slug,
			LessonDate:    "2026-03-14",
			ReadingLength: 60,
		},
		WorkflowID: "wf-step",
		CreatedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	path := filepath.Join(dir, slug+"_params.json")
	testsupport.WriteText(t, path, string(data))
	return path
}

func TestStepCommandRequiresParamsEnv(t *testing.T) {
	_, configPath := setupCLIConfig(t)
	t.Setenv(workflow.EnvParamsFile, "")

	_, stderr, err := runCLI(t, []string{"step", "essay"}, configPath)
	requireExitCode(t, err, services.ExitConfiguration)
	requireContains(t, stderr, workflow.EnvParamsFile)
}

func TestStepCommandRejectsUnknownStep(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)
	t.Setenv(workflow.EnvParamsFile, writeStepParams(t, cfg.Paths.ParamsDir, "volcanoes"))

	_, stderr, err := runCLI(t, []string{"step", "dance"}, configPath)
	requireExitCode(t, err, services.ExitValidation)
	requireContains(t, stderr, "unknown step")
}

func TestStepCommandMissingInputsIsNotFound(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)
	t.Setenv(workflow.EnvParamsFile, writeStepParams(t, cfg.Paths.ParamsDir, "volcanoes"))

	_, stderr, err := runCLI(t, []string{"step", "narration-video"}, configPath)
	requireExitCode(t, err, services.ExitNotFound)
	requireContains(t, stderr, "run step 1 first")
}

func TestStepCommandRendersNarrationVideo(t *testing.T) {
	cfg, configPath := setupCLIConfig(t,
		testsupport.WithStubbedBinaries("ffmpeg"),
		testsupport.WithFFprobeDuration("12.5"),
	)
	t.Setenv(workflow.EnvParamsFile, writeStepParams(t, cfg.Paths.ParamsDir, "volcanoes"))

	layout := artifacts.New(cfg.Paths.WorkspaceDir, "volcanoes")
	testsupport.WriteFile(t, layout.Path(artifacts.NarrationAudio), 2048)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.AssetsDir, artifacts.FormatFor("").Background), 1024)

	if _, stderr, err := runCLI(t, []string{"step", "narration-video"}, configPath); err != nil {
		t.Fatalf("step narration-video: %v (stderr %q)", err, stderr)
	}
	info, err := os.Stat(layout.Path(artifacts.FormatFor("").Narration))
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected narration video, got %v", err)
	}
}
