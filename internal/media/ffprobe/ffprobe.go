package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"lessonreel/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "", "ffprobe", detail, err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Duration probes path and returns its container duration in seconds.
func Duration(ctx context.Context, binary, path string) (float64, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0, services.Wrap(services.ErrValidation, "", "ffprobe", fmt.Sprintf("no duration reported for %s", path), nil)
	}
	return seconds, nil
}

// DurationFunc reports the length of a media file in seconds.
type DurationFunc func(ctx context.Context, path string) (float64, error)

// Prober returns a DurationFunc backed by binary.
func Prober(binary string) DurationFunc {
	return func(ctx context.Context, path string) (float64, error) {
		return Duration(ctx, binary, path)
	}
}

// InspectFunc returns the ffprobe view of a media file.
type InspectFunc func(ctx context.Context, path string) (Result, error)

// Probe bundles the ffprobe queries the render steps make.
type Probe struct {
	Duration DurationFunc
	Inspect  InspectFunc
}

// NewProbe returns a Probe backed by binary.
func NewProbe(binary string) Probe {
	return Probe{
		Duration: Prober(binary),
		Inspect: func(ctx context.Context, path string) (Result, error) {
			return Inspect(ctx, binary, path)
		},
	}
}

// Ready reports whether both queries are wired.
func (p Probe) Ready() bool {
	return p.Duration != nil && p.Inspect != nil
}

// VerifyRender inspects a freshly rendered video and checks it carries one
// video stream of width x height and one audio stream.
func VerifyRender(ctx context.Context, inspect InspectFunc, path string, width, height int) (Result, error) {
	result, err := inspect(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if err := result.CheckRender(width, height); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "", "verify render", path, err)
	}
	return result, nil
}

// CheckRender validates the stream layout of a rendered lesson video.
func (r Result) CheckRender(width, height int) error {
	if n := r.VideoStreamCount(); n != 1 {
		return fmt.Errorf("expected 1 video stream, found %d", n)
	}
	if n := r.AudioStreamCount(); n != 1 {
		return fmt.Errorf("expected 1 audio stream, found %d", n)
	}
	w, h, ok := r.VideoSize()
	if !ok || w != width || h != height {
		return fmt.Errorf("expected %dx%d video, found %dx%d", width, height, w, h)
	}
	if strings.TrimSpace(r.Format.Size) != "" && r.SizeBytes() == 0 {
		return errors.New("container is empty")
	}
	return nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// VideoSize returns the dimensions of the first video stream.
func (r Result) VideoSize() (int, int, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, true
		}
	}
	return 0, 0, false
}

// DurationSeconds returns the container duration in seconds, falling back to
// the longest stream duration. Unparseable values yield NaN.
func (r Result) DurationSeconds() float64 {
	if strings.TrimSpace(r.Format.Duration) != "" {
		return parseFloat(r.Format.Duration)
	}
	longest := 0.0
	for _, stream := range r.Streams {
		if d := parseFloat(stream.Duration); !math.IsNaN(d) && d > longest {
			longest = d
		}
	}
	return longest
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
