// Package preflight provides readiness checks for the binaries, directories
// and external services a workflow depends on.
//
// `lessonreel doctor` runs RunAll and prints the results. Each check is gated
// by its config toggle: YouTube and Cloud Storage checks only run when
// publishing to them is enabled.
package preflight
