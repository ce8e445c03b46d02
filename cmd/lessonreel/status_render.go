package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"lessonreel/internal/status"
)

// tone tags and colours a rendered line.
type tone int

const (
	toneInfo tone = iota
	toneOK
	toneWarn
	toneError
)

var tones = [...]struct {
	tag    string
	colors text.Colors
}{
	toneInfo:  {"INFO", text.Colors{text.FgBlue}},
	toneOK:    {"OK", text.Colors{text.FgGreen}},
	toneWarn:  {"WARN", text.Colors{text.FgYellow}},
	toneError: {"ERROR", text.Colors{text.FgRed, text.Bold}},
}

const labelWidth = 22

// renderLine formats "  Label:   [TAG] message".
func renderLine(label string, t tone, message string, colorize bool) string {
	tag := "[" + tones[t].tag + "]"
	if message != "" {
		tag += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", labelWidth, label+":", tag)
	if colorize {
		return tones[t].colors.Sprint(line)
	}
	return line
}

// renderHeader returns a title and its underline.
func renderHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("=", len(title))
	if colorize {
		return []string{text.Bold.Sprint(title), rule}
	}
	return []string{title, rule}
}

// shouldColorize is true for terminals unless NO_COLOR is set.
func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func toneForStatus(s status.Status) tone {
	switch s {
	case status.StatusCompleted:
		return toneOK
	case status.StatusError:
		return toneError
	case status.StatusCancelled:
		return toneWarn
	default:
		return toneInfo
	}
}

// recordLines renders a status record, one field per line.
func recordLines(rec status.Record, colorize bool) []string {
	t := toneForStatus(rec.Status)
	lines := []string{
		renderLine("Status", t, string(rec.Status), colorize),
		renderLine("Step", toneInfo, fmt.Sprintf("%d/%d", rec.CurrentStep, rec.TotalSteps), colorize),
		renderLine("Updated", toneInfo, rec.UpdatedAt.Local().Format(time.DateTime), colorize),
	}
	if rec.Error != "" {
		lines = append(lines, renderLine("Error", t, rec.Error, colorize))
	}
	return lines
}
