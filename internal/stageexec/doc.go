// Package stageexec runs a stage handler inside a step process with
// consistent lifecycle logging.
package stageexec
