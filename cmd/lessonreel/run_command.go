package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"lessonreel/internal/history"
	"lessonreel/internal/logging"
	"lessonreel/internal/services"
	"lessonreel/internal/status"
	"lessonreel/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.Options

	cmd := &cobra.Command{
		Use:         "run",
		Short:       "Run the lesson workflow for one request",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("status-file", opts.StatusPath); err != nil {
				return err
			}
			for _, flag := range []struct{ name, value string }{
				{"params", opts.ParamsPath},
				{"workflow-id", opts.WorkflowID},
			} {
				if err := requireFlag(flag.name, flag.value); err != nil {
					return &exitError{code: 1, err: reportInitFailure(opts.StatusPath, services.Wrap(services.ErrValidation, "", "run", err.Error(), nil))}
				}
			}
			out, err := runWorkflow(cmd, ctx, opts)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&opts.ParamsPath, "params", "", "Workflow request file (JSON)")
	cmd.Flags().StringVar(&opts.StatusPath, "status-file", "", "Status file to keep updated")
	cmd.Flags().StringVar(&opts.WorkflowID, "workflow-id", "", "Unique workflow identifier")
	cmd.Flags().IntVar(&opts.StartStep, "start-step", 1, "First step to run (1-4)")
	return cmd
}

func runWorkflow(cmd *cobra.Command, ctx *commandContext, opts workflow.Options) (*workflow.Output, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, reportInitFailure(opts.StatusPath, err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, reportInitFailure(opts.StatusPath, services.Wrap(services.ErrConfiguration, "", "init logger", "", err))
	}

	command := cfg.Workflow.StepCommand
	if len(command) == 0 {
		if command, err = workflow.DefaultCommand(); err != nil {
			return nil, reportInitFailure(opts.StatusPath, err)
		}
	}
	runner := &workflow.ExecRunner{Command: command, Logger: logger}
	if path := ctx.resolvedConfigPath(); path != "" {
		runner.Env = append(runner.Env, workflow.EnvConfig+"="+path)
	}

	var orchOpts []workflow.Option
	if cfg.History.Enabled {
		if store := openHistory(cfg.History.Path, logger); store != nil {
			defer store.Close()
			orchOpts = append(orchOpts, workflow.WithRecorder(store))
		}
	}

	return workflow.New(cfg, runner, logger, orchOpts...).Run(cmd.Context(), opts)
}

// reportInitFailure records a failure that happened before the orchestrator
// could take over the status file.
func reportInitFailure(statusPath string, err error) error {
	status.NewReporter(statusPath, nil).Update(0, status.StatusError, err.Error())
	return err
}

func openHistory(path string, logger *slog.Logger) *history.Store {
	store, err := history.Open(path)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.String("history_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path or disable history"),
			logging.String(logging.FieldImpact, "this run will not appear in lessonreel runs"),
		)
		return nil
	}
	return store
}
