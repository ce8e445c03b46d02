// Package workflow drives one lesson through the four numbered steps.
//
// The Orchestrator persists the caller's request as a per-workflow params
// file, then launches each step as a child process through a StepRunner,
// writing the status file before every step and once more at the end. A step
// that exits non-zero stops the workflow; its stderr becomes the reported
// error. Cancellation is observed only between steps: a running child is
// never killed, so a step either finishes or fails on its own terms.
//
// Workflows are isolated by workflow ID (params and status files) and by slug
// (an advisory lock on the output folder). After the last step the
// orchestrator gathers the published URL, article text and quiz into an
// Output document; missing artifacts fall back to placeholders without
// affecting success.
package workflow
