package stage

import (
	"context"
	"log/slog"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/params"
)

// Job is the unit of work handed to a stage: one workflow's parameters and
// the output folder its artifacts live in.
type Job struct {
	Params params.WorkflowParams
	Layout artifacts.Layout
	// UseDateContext is set when the step was launched with
	// --use-date-context; stages then stamp Params.LessonDate into the
	// artifacts that carry a date.
	UseDateContext bool
}

// Handler describes the contract the step command needs from each stage.
type Handler interface {
	Prepare(context.Context, *Job) error
	Execute(context.Context, *Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that accept a context-stamped logger
// before running.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Health is a stage's readiness as reported to `lessonreel doctor`.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports name as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports name as not ready because of detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// Summary is the detail line shown for h.
func (h Health) Summary() string {
	if h.Detail != "" {
		return h.Detail
	}
	if h.Ready {
		return "ready"
	}
	return "not ready"
}
