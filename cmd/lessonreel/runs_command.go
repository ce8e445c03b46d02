package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lessonreel/internal/history"
)

type runView struct {
	WorkflowID  string    `json:"workflowId"`
	Slug        string    `json:"slug"`
	Topic       string    `json:"topic"`
	Status      string    `json:"status"`
	CurrentStep int       `json:"currentStep"`
	TotalSteps  int       `json:"totalSteps"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	OutputPath  string    `json:"outputPath,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded workflow runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
				if !cfg.History.Enabled {
					fmt.Fprintln(out, "Run history is disabled (set history.enabled = true).")
				} else {
					fmt.Fprintln(out, "No runs recorded.")
				}
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				views := make([]runView, 0, len(runs))
				for _, r := range runs {
					views = append(views, runView(r))
				}
				return writeJSON(out, views)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintln(out, runsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

// runsTable renders runs newest first; long error messages are cut at 60
// columns.
func runsTable(runs []history.Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Workflow", "Slug", "Status", "Step", "Updated", "Error"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.WorkflowID,
			r.Slug,
			r.Status,
			strconv.Itoa(r.CurrentStep) + "/" + strconv.Itoa(r.TotalSteps),
			r.UpdatedAt.Local().Format(time.DateTime),
			r.Error,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Step", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.Trim},
	})
	return tw.Render()
}
