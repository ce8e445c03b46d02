// Package services defines shared utilities consumed by the step handlers and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp workflow IDs, step names, slugs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, Details classification,
//     and the exit-code mapping used across the step process boundary.
//   - RetryPolicy, the bounded retry loop every external call goes through.
//
// Use these helpers when wiring new step logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
