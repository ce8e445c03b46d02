package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lessonreel/internal/logging"
	"lessonreel/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, logging.NewNop())

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderHeader("lessonreel doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return &exitError{code: 1, err: errors.New("preflight checks failed")}
			}
			return nil
		},
	}
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		t := toneOK
		switch {
		case !r.Passed && r.Optional:
			t = toneWarn
		case !r.Passed:
			t = toneError
		}
		lines = append(lines, renderLine(r.Name, t, r.Detail, colorize))
	}
	return lines
}
