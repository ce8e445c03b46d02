package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/config"
	"lessonreel/internal/docx"
	"lessonreel/internal/essay"
	"lessonreel/internal/media/ffprobe"
	"lessonreel/internal/pipeline"
	"lessonreel/internal/stage"
	"lessonreel/internal/transcript"
)

func newTimestampsCommand(ctx *commandContext) *cobra.Command {
	tsCmd := &cobra.Command{
		Use:   "timestamps",
		Short: "Narration timestamp utilities",
	}
	tsCmd.AddCommand(newTimestampsRebuildCommand(ctx))
	return tsCmd
}

func newTimestampsRebuildCommand(ctx *commandContext) *cobra.Command {
	var (
		folder string
		fixed  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate the timestamp file from the narration audio",
		Long:  "Regenerates narration_timestamps_short.txt in a lesson output folder. With --fixed the narration is split into equal windows instead of being transcribed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("folder", folder); err != nil {
				return err
			}
			if fixed < 0 {
				return errors.New("--fixed must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(folder)
			if err != nil {
				return err
			}

			audio := filepath.Join(dir, artifacts.NarrationAudio)
			if err := stage.RequireFile("timestamps", audio, "run step 1 first"); err != nil {
				return err
			}

			var transcriber essay.Transcriber
			if fixed > 0 {
				transcriber = essay.FixedTranscriber{Probe: ffprobe.Prober(cfg.FFprobeBinary()), Seconds: fixed.Seconds()}
			} else {
				transcriber = pipeline.NewTranscriber(cfg, pipeline.NewLLMClient(cfg))
			}
			segments, err := transcriber.Transcribe(cmd.Context(), essay.TranscriptionRequest{
				AudioPath: audio,
				WorkDir:   filepath.Join(dir, artifacts.LogsDir),
				Text:      narrationText(dir),
			})
			if err != nil {
				return err
			}

			target := filepath.Join(dir, artifacts.Timestamps)
			if err := transcript.WriteFile(target, segments); err != nil {
				return fmt.Errorf("write timestamps: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d segments to %s\n", len(segments), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Lesson output folder")
	cmd.Flags().DurationVar(&fixed, "fixed", 0, "Split into fixed windows of this length (e.g. 5s) instead of transcribing")
	return cmd
}

// narrationText returns the essay body, or "" when neither essay file is
// readable.
func narrationText(dir string) string {
	if rec, err := essay.LoadRecord(filepath.Join(dir, artifacts.EssayJSON)); err == nil && strings.TrimSpace(rec.Body) != "" {
		return rec.Body
	}
	text, err := docx.ArticleText(filepath.Join(dir, artifacts.EssayDocx))
	if err != nil {
		return ""
	}
	return text
}
