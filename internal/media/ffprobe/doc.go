// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe; Duration is the shortcut the narration and compose
// steps use to size their renders. Helper methods on Result expose stream
// counts, video dimensions and container duration.
package ffprobe
