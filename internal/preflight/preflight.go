package preflight

import (
	"context"
	"log/slog"

	"lessonreel/internal/config"
	"lessonreel/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported but do not fail the run.
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))
	results = append(results, CheckDirectoryAccess("Params directory", cfg.Paths.ParamsDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckBackgrounds(cfg)...)

	for _, status := range deps.Lookup(deps.ForConfig(cfg)) {
		results = append(results, fromDependency(status))
	}

	results = append(results, CheckStages(ctx, cfg, logger)...)
	results = append(results, CheckOpenAI(ctx, cfg))

	if cfg.YouTube.Enabled {
		results = append(results, CheckYouTubeCredentials(cfg))
	}
	if cfg.Storage.Enabled {
		results = append(results, CheckStorage(cfg))
	}
	return results
}

// Failed reports whether any non-optional check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

func fromDependency(status deps.Status) Result {
	if !status.Available() {
		return Result{Name: status.Name, Optional: status.Optional, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Optional: status.Optional, Detail: status.Path}
}
