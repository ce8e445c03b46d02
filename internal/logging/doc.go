// Package logging assembles structured slog loggers and formatting helpers used
// by the orchestrator and the step processes.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so step code can automatically
// tag log lines with workflow IDs, step names, slugs, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
