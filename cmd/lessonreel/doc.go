// Package main hosts the lessonreel CLI entrypoint and command graph.
//
// `lessonreel run` is the orchestrator: it persists the request, launches
// each numbered step as `lessonreel step <name>` in a child process and writes
// the status and output documents. The remaining commands inspect a run
// (status, output, runs), check the environment (doctor), manage
// configuration and credentials, and rebuild narration timestamps.
//
// Keep this package lean: behaviour lives in the internal packages and is
// surfaced here through flags.
package main
