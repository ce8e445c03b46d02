package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/fileutil"
	"lessonreel/internal/history"
	"lessonreel/internal/logging"
	"lessonreel/internal/params"
	"lessonreel/internal/services"
	"lessonreel/internal/status"
	"lessonreel/internal/textutil"
)

// CancelledMessage is the status error recorded for a cancelled workflow.
const CancelledMessage = "Cancelled by user"

// ErrCancelled is returned when the workflow stopped at a cancellation
// checkpoint.
var ErrCancelled = errors.New("workflow cancelled")

// Recorder receives every status transition of a run.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Options describe one workflow invocation.
type Options struct {
	// ParamsPath is the caller's request file. The output document is
	// written next to it.
	ParamsPath string
	StatusPath string
	WorkflowID string
	// StartStep is 1-based; zero means 1.
	StartStep int
}

// Orchestrator runs the fixed step list for one workflow at a time.
type Orchestrator struct {
	cfg      *config.Config
	runner   StepRunner
	store    *params.Store
	steps    []StepSpec
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a run ledger.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// WithClock overrides the status clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSteps replaces the step list.
func WithSteps(steps []StepSpec) Option {
	return func(o *Orchestrator) {
		o.steps = append([]StepSpec(nil), steps...)
	}
}

// New constructs an orchestrator. Params files are stored under
// cfg.Paths.ParamsDir.
func New(cfg *config.Config, runner StepRunner, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		runner: runner,
		store:  params.NewStore(cfg.Paths.ParamsDir),
		steps:  DefaultSteps(),
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runState is what the status observer needs to mirror a record into the
// ledger.
type runState struct {
	workflowID string
	slug       string
	topic      string
	startedAt  time.Time
	outputPath string
}

// Run executes the workflow and returns its Output on success. Every return
// path leaves a terminal status in opts.StatusPath.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Output, error) {
	state := &runState{workflowID: opts.WorkflowID, startedAt: o.now().UTC()}
	logger := o.logger.With(logging.String(logging.FieldWorkflowID, opts.WorkflowID))
	reporter := status.NewReporter(opts.StatusPath, logger,
		status.WithClock(o.now),
		status.WithObserver(o.observer(ctx, logger, state)),
	)

	startStep := opts.StartStep
	if startStep == 0 {
		startStep = 1
	}
	if err := o.validate(opts, startStep); err != nil {
		return nil, o.initFailed(logger, reporter, err)
	}

	req, err := params.LoadRequest(opts.ParamsPath)
	if err != nil {
		return nil, o.initFailed(logger, reporter, err)
	}
	state.slug, state.topic = req.Slug, req.Topic

	paramsPath, err := o.store.Save(req, opts.WorkflowID)
	if err != nil {
		return nil, o.initFailed(logger, reporter, err)
	}

	layout := artifacts.New(o.cfg.Paths.WorkspaceDir, req.Slug)
	lock, err := acquireSlugLock(layout)
	if err != nil {
		return nil, o.initFailed(logger, reporter, err)
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithWorkflowID(ctx, opts.WorkflowID)
	ctx = services.WithSlug(ctx, req.Slug)
	logger = logger.With(logging.String(logging.FieldSlug, req.Slug))
	logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.String("params_file", paramsPath),
		logging.String("status_file", opts.StatusPath),
		logging.Int("start_step", startStep),
		logging.String("topic", req.Topic),
	)

	reached := startStep - 1
	for _, spec := range o.steps {
		if spec.Index < startStep {
			logger.Info("step skipped",
				logging.String(logging.FieldEventType, "step_skipped"),
				logging.String(logging.FieldStep, spec.Name),
				logging.Int(logging.FieldStepIndex, spec.Index),
			)
			continue
		}
		if ctx.Err() != nil {
			return nil, o.cancelled(ctx, logger, reporter, reached)
		}

		spec.LogPath = layout.StepLog(spec.Index, spec.Name)
		stepStart := time.Now()
		if err := o.runner.Run(ctx, spec, paramsPath, reporter); err != nil {
			logging.ErrorWithContext(logger, "workflow failed", "workflow_failure",
				logging.String(logging.FieldStep, spec.Name),
				logging.Int(logging.FieldStepIndex, spec.Index),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Details(err).Hint),
			)
			return nil, err
		}
		reached = spec.Index
		logger.Info("step completed",
			logging.String(logging.FieldEventType, "step_complete"),
			logging.String(logging.FieldStep, spec.Name),
			logging.Int(logging.FieldStepIndex, spec.Index),
			logging.Duration("duration", time.Since(stepStart)),
		)

		if ctx.Err() != nil {
			return nil, o.cancelled(ctx, logger, reporter, reached)
		}
	}

	out := ExtractOutput(layout, req, opts.WorkflowID, logger)
	outputPath := OutputPath(opts.ParamsPath)
	if err := fileutil.WriteJSONAtomic(outputPath, out); err != nil {
		err = services.Wrap(services.ErrConfiguration, "workflow", "write output", outputPath, err)
		reporter.Update(status.TotalSteps, status.StatusError, err.Error())
		logging.ErrorWithContext(logger, "output write failed", "output_write_failed",
			logging.String("output_file", outputPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the params directory is writable"),
		)
		return nil, err
	}
	state.outputPath = outputPath
	reporter.Update(status.TotalSteps, status.StatusCompleted, "")
	logger.Info("workflow completed",
		logging.String(logging.FieldEventType, "workflow_complete"),
		logging.String("output_file", outputPath),
		logging.String("youtube_url", out.YouTubeURL),
		logging.Bool("quiz", out.QuizData != nil),
	)
	return &out, nil
}

func (o *Orchestrator) validate(opts Options, startStep int) error {
	if err := textutil.ValidateIdentifier("workflowId", opts.WorkflowID); err != nil {
		return services.Wrap(services.ErrValidation, "workflow", "validate", err.Error(), nil)
	}
	if opts.ParamsPath == "" {
		return services.Wrap(services.ErrConfiguration, "workflow", "validate", "params path is required", nil)
	}
	if startStep < 1 || startStep > len(o.steps) {
		return services.Wrap(services.ErrValidation, "workflow", "validate",
			fmt.Sprintf("start step must be between 1 and %d, got %d", len(o.steps), startStep), nil)
	}
	if o.runner == nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "validate", "no step runner configured", nil)
	}
	return nil
}

func (o *Orchestrator) initFailed(logger *slog.Logger, reporter *status.Reporter, err error) error {
	reporter.Update(0, status.StatusError, err.Error())
	logging.ErrorWithContext(logger, "workflow initialization failed", "workflow_init_failure",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Details(err).Hint),
	)
	return err
}

func (o *Orchestrator) cancelled(ctx context.Context, logger *slog.Logger, reporter *status.Reporter, reached int) error {
	reporter.Update(reached, status.StatusCancelled, CancelledMessage)
	logging.WarnWithContext(logger, "workflow cancelled", "workflow_cancelled",
		logging.Int(logging.FieldStepIndex, reached),
		logging.String(logging.FieldErrorHint, "re-run with --start-step to resume"),
		logging.String(logging.FieldImpact, "remaining steps were not started"),
	)
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

func (o *Orchestrator) observer(ctx context.Context, logger *slog.Logger, state *runState) func(status.Record) {
	if o.recorder == nil {
		return nil
	}
	// The ledger write must survive cancellation of the run itself.
	ctx = context.WithoutCancel(ctx)
	return func(rec status.Record) {
		if state.slug == "" {
			return
		}
		err := o.recorder.Record(ctx, history.Run{
			WorkflowID:  state.workflowID,
			Slug:        state.slug,
			Topic:       state.topic,
			Status:      string(rec.Status),
			CurrentStep: rec.CurrentStep,
			TotalSteps:  rec.TotalSteps,
			Error:       rec.Error,
			StartedAt:   state.startedAt,
			UpdatedAt:   rec.UpdatedAt,
			OutputPath:  state.outputPath,
		})
		if err != nil {
			logging.WarnWithContext(logger, "run history write failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path in the config"),
				logging.String(logging.FieldImpact, "lessonreel runs will not show this transition"),
			)
		}
	}
}
