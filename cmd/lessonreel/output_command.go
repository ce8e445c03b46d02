package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"lessonreel/internal/workflow"
)

func newOutputCommand() *cobra.Command {
	var paramsPath string

	cmd := &cobra.Command{
		Use:         "output",
		Short:       "Print the output document of a completed workflow",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("params", paramsPath); err != nil {
				return err
			}
			path := workflow.OutputPath(paramsPath)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no output at %s; the workflow has not completed", path)
			}
			if err != nil {
				return fmt.Errorf("read output: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&paramsPath, "params", "", "Params file the workflow was started with")
	return cmd
}
