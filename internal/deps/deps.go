package deps

import (
	"os/exec"
	"strings"

	"lessonreel/internal/config"
	"lessonreel/internal/services/whisperx"
)

// Binary is an external program one of the steps executes.
type Binary struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status is the PATH lookup result for a Binary. Path is empty when the
// binary could not be found.
type Status struct {
	Binary
	Path   string
	Detail string
}

// Available reports whether the binary resolved to an executable.
func (s Status) Available() bool {
	return s.Path != ""
}

// ForConfig lists the binaries the configured pipeline runs. uvx is only
// required when WhisperX does the transcription.
func ForConfig(cfg *config.Config) []Binary {
	return []Binary{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Purpose: "renders the narration video and the final composition"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Purpose: "measures narration audio duration"},
		{
			Name:     "uvx",
			Command:  whisperx.UVXCommand,
			Purpose:  "runs WhisperX when transcription.engine is whisperx",
			Optional: cfg.Transcription.Engine != config.TranscriptionWhisperX,
		},
	}
}

// Lookup resolves every binary on PATH.
func Lookup(binaries []Binary) []Status {
	out := make([]Status, 0, len(binaries))
	for _, bin := range binaries {
		bin.Command = strings.TrimSpace(bin.Command)
		st := Status{Binary: bin}
		switch path, err := exec.LookPath(bin.Command); {
		case bin.Command == "":
			st.Detail = "command not configured"
		case err != nil:
			st.Detail = "binary " + bin.Command + " not found on PATH (" + bin.Purpose + ")"
		default:
			st.Path = path
		}
		out = append(out, st)
	}
	return out
}
