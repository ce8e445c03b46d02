package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lessonreel/internal/logging"
	"lessonreel/internal/services"
)

// CommandRunner executes ffmpeg with args.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Encoding carries the output settings shared by every render.
type Encoding struct {
	FrameRate  int
	Codec      string
	AudioCodec string
	PixFmt     string
}

func (e Encoding) withDefaults() Encoding {
	if e.FrameRate <= 0 {
		e.FrameRate = 30
	}
	if e.Codec == "" {
		e.Codec = "libx264"
	}
	if e.AudioCodec == "" {
		e.AudioCodec = "aac"
	}
	if e.PixFmt == "" {
		e.PixFmt = "yuv420p"
	}
	return e
}

// Renderer builds the stills, clips and final mux for a lesson video.
type Renderer struct {
	binary   string
	encoding Encoding
	logger   *slog.Logger
	run      CommandRunner
}

// NewRenderer constructs a renderer that shells out to binary.
func NewRenderer(binary string, encoding Encoding, logger *slog.Logger) *Renderer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Renderer{
		binary:   binary,
		encoding: encoding.withDefaults(),
		logger:   logging.NewComponentLogger(logger, "ffmpeg"),
		run:      defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (r *Renderer) WithCommandRunner(run CommandRunner) {
	if r != nil && run != nil {
		r.run = run
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, lastLines(stderr.String(), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

func (r *Renderer) exec(ctx context.Context, op, output string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("ffmpeg %s: ensure dir: %w", op, err)
	}
	r.logger.Debug("executing ffmpeg",
		logging.String("op", op),
		logging.String("output", output),
		logging.Int("arg_count", len(args)),
	)
	if err := r.run(ctx, r.binary, args...); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg "+op, filepath.Base(output), err)
	}
	return nil
}

// Seconds formats a duration for ffmpeg's -t and filter arguments.
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func fitFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height, width, height)
}

// StillWithAudio loops image for duration seconds under audio, fitted to
// width x height.
func (r *Renderer) StillWithAudio(ctx context.Context, image, audio, output string, width, height int, duration float64) error {
	enc := r.encoding
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-i", image,
		"-i", audio,
		"-vf", fitFilter(width, height),
		"-c:v", enc.Codec,
		"-c:a", enc.AudioCodec,
		"-t", Seconds(duration),
		"-pix_fmt", enc.PixFmt,
		"-r", strconv.Itoa(enc.FrameRate),
		"-shortest", output,
	}
	return r.exec(ctx, "still", output, args...)
}

// Overlay scales image to size x size and centres it on background, writing a
// single frame.
func (r *Renderer) Overlay(ctx context.Context, background, image, output string, size int) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", background,
		"-i", image,
		"-filter_complex", fmt.Sprintf("[1:v]scale=%d:%d[fg];[0:v][fg]overlay=(W-w)/2:(H-h)/2", size, size),
		"-frames:v", "1", output,
	}
	return r.exec(ctx, "overlay", output, args...)
}

// Clip renders a silent clip showing image for duration seconds.
func (r *Renderer) Clip(ctx context.Context, image, output string, duration float64) error {
	enc := r.encoding
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-i", image,
		"-t", Seconds(duration),
		"-c:v", enc.Codec,
		"-pix_fmt", enc.PixFmt,
		"-r", strconv.Itoa(enc.FrameRate),
		"-an", output,
	}
	return r.exec(ctx, "clip", output, args...)
}

// Concat joins the clips listed in listPath without re-encoding.
func (r *Renderer) Concat(ctx context.Context, listPath, output string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy", output,
	}
	return r.exec(ctx, "concat", output, args...)
}

// Mux combines the video track of video with the audio track of audioSource,
// fitting the picture to width x height and holding the last frame for
// holdSeconds so the picture never ends before the narration.
func (r *Renderer) Mux(ctx context.Context, video, audioSource, output string, width, height int, holdSeconds float64) error {
	enc := r.encoding
	filter := fmt.Sprintf("[0:v]%s,tpad=stop_mode=clone:stop_duration=%s[v]", fitFilter(width, height), Seconds(holdSeconds))
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", audioSource,
		"-filter_complex", filter,
		"-map", "[v]", "-map", "1:a",
		"-c:v", enc.Codec,
		"-c:a", enc.AudioCodec,
		"-pix_fmt", enc.PixFmt,
		"-shortest", output,
	}
	return r.exec(ctx, "mux", output, args...)
}

// ConcatList renders an ffmpeg concat demuxer list for paths.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}
