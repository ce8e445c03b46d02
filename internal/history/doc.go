// Package history keeps an optional SQLite ledger of workflow runs.
//
// The orchestrator upserts one row per workflow ID on every status change.
// The ledger is an observability side channel: recording failures are logged
// by the caller and never affect a run. `lessonreel runs` reads it back.
package history
