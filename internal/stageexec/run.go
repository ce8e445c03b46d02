package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *stage.Job) error
	Execute(context.Context, *stage.Job) error
}

// Options controls stage execution.
type Options struct {
	Logger    *slog.Logger
	Handler   Handler
	StageName string
	Job       *stage.Job
}

// Run prepares and executes one stage with start, completion and failure
// events logged against the job's workflow context.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Job == nil {
		return fmt.Errorf("stage job is required")
	}

	stageCtx := services.WithStep(ctx, opts.StageName)
	stageCtx = services.WithWorkflowID(stageCtx, opts.Job.Params.WorkflowID)
	stageCtx = services.WithSlug(stageCtx, opts.Job.Params.Slug)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	started := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("topic", strings.TrimSpace(opts.Job.Params.Topic)),
		logging.String("output_folder", opts.Job.Layout.Dir()),
		logging.Bool("use_date_context", opts.Job.UseDateContext),
	)

	if err := opts.Handler.Prepare(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, "prepare", err)
	}
	if err := opts.Handler.Execute(stageCtx, opts.Job); err != nil {
		return handleFailure(stageLogger, "execute", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func handleFailure(logger *slog.Logger, phase string, stageErr error) error {
	details := services.Details(stageErr)
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("phase", phase),
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.String("error_message", strings.TrimSpace(details.Message)),
		logging.Error(stageErr),
	)
	return stageErr
}
