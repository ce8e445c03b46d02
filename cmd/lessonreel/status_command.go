package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"lessonreel/internal/status"
)

func newStatusCommand() *cobra.Command {
	var (
		statusPath string
		follow     bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Show a workflow's status file",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("status-file", statusPath); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			show := func(rec status.Record) error {
				return printRecord(out, rec, jsonOut, follow)
			}
			if follow {
				return followStatus(cmd.Context(), statusPath, show)
			}
			rec, err := status.Read(statusPath)
			if err != nil {
				return fmt.Errorf("read status: %w", err)
			}
			return show(rec)
		},
	}

	cmd.Flags().StringVar(&statusPath, "status-file", "", "Status file written by lessonreel run")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing updates until the workflow finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func printRecord(out io.Writer, rec status.Record, jsonOut, compact bool) error {
	if jsonOut {
		enc := json.NewEncoder(out)
		if !compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(rec)
	}
	colorize := shouldColorize(out)
	for _, line := range recordLines(rec, colorize) {
		fmt.Fprintln(out, line)
	}
	if compact {
		fmt.Fprintln(out)
	}
	return nil
}

// followStatus prints the record whenever the status file is replaced and
// returns once it reaches a terminal status.
func followStatus(ctx context.Context, path string, show func(status.Record) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch status: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	var last status.Record
	emit := func() (bool, error) {
		rec, err := status.Read(path)
		if err != nil {
			// The file may not exist yet or be mid-replace.
			return false, nil
		}
		if rec.UpdatedAt.Equal(last.UpdatedAt) && rec.Status == last.Status {
			return rec.Status.Terminal(), nil
		}
		last = rec
		if err := show(rec); err != nil {
			return false, err
		}
		return rec.Status.Terminal(), nil
	}

	if done, err := emit(); done || err != nil {
		return err
	}
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if done, err := emit(); done || err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				if done, emitErr := emit(); done || emitErr != nil {
					return emitErr
				}
				continue
			}
			return fmt.Errorf("watch status: %w", err)
		}
	}
}
