package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/logging"
	"lessonreel/internal/params"
	"lessonreel/internal/pipeline"
	"lessonreel/internal/services"
	"lessonreel/internal/stage"
	"lessonreel/internal/stageexec"
	"lessonreel/internal/workflow"
)

func newStepCommand(ctx *commandContext) *cobra.Command {
	var useDateContext bool

	cmd := &cobra.Command{
		Use:         "step <" + strings.Join(pipeline.StepNames(), "|") + ">",
		Short:       "Run a single step (invoked by lessonreel run)",
		Long:        "Runs one step against the params file named by " + workflow.EnvParamsFile + ". Failures print a one-line reason on stderr and exit with a code describing the error kind.",
		Args:        cobra.ExactArgs(1),
		ValidArgs:   pipeline.StepNames(),
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runStep(cmd, ctx, args[0], useDateContext)
			if err == nil {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), services.Details(err).Message)
			return &exitError{code: services.ExitCode(err), err: err, silent: true}
		},
	}
	cmd.Flags().BoolVar(&useDateContext, "use-date-context", false, "Use the lesson date from the params file")
	return cmd
}

func runStep(cmd *cobra.Command, ctx *commandContext, name string, useDateContext bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	paramsPath := strings.TrimSpace(os.Getenv(workflow.EnvParamsFile))
	if paramsPath == "" {
		return services.Wrap(services.ErrConfiguration, name, "read params", workflow.EnvParamsFile+" is not set", nil)
	}
	wp, err := params.Load(paramsPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewForStep(cfg)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, name, "init logger", "", err)
	}
	handler, err := pipeline.NewHandler(cfg, name, logger)
	if err != nil {
		return err
	}

	runCtx := cmd.Context()
	if requestID := strings.TrimSpace(os.Getenv(workflow.EnvRequestID)); requestID != "" {
		runCtx = services.WithRequestID(runCtx, requestID)
	}
	return stageexec.Run(runCtx, stageexec.Options{
		Logger:    logger,
		Handler:   handler,
		StageName: name,
		Job: &stage.Job{
			Params:         wp,
			Layout:         artifacts.New(cfg.Paths.WorkspaceDir, wp.Slug),
			UseDateContext: useDateContext,
		},
	})
}
