package transcript

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"lessonreel/internal/fileutil"
)

// Segment is one timed span of narration. Index is 1-based and names the
// matching illustration (00001.png for Index 1).
type Segment struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns End-Start, never negative.
func (s Segment) Duration() float64 {
	return math.Max(0, s.End-s.Start)
}

// Write renders segments in the block format:
//
//	Segment 1
//	Start: 0.00s
//	End: 5.54s
//	Text: ...
func Write(w io.Writer, segments []Segment) error {
	bw := bufio.NewWriter(w)
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if _, err := fmt.Fprintf(bw, "Segment %d\nStart: %.2fs\nEnd: %.2fs\nText: %s\n\n", seg.Index, seg.Start, seg.End, text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile atomically replaces path with the rendered segments.
func WriteFile(path string, segments []Segment) error {
	var buf bytes.Buffer
	if err := Write(&buf, segments); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

var legacyLine = regexp.MustCompile(`^\[(\d+(?:\.\d+)?)s\s*-\s*(\d+(?:\.\d+)?)s\]\s*(.+)$`)

// Parse reads either the block format produced by Write or the legacy
// one-line format "[0.00s - 5.54s] text". Malformed blocks are skipped.
func Parse(content string) []Segment {
	if strings.Contains(content, "Start:") && strings.Contains(content, "End:") {
		return parseBlocks(content)
	}
	return parseLegacy(content)
}

// ParseFile reads and parses the timestamp file at path.
func ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

var blockHeader = regexp.MustCompile(`^Segment\s+(\S+)$`)

type block struct {
	seg       Segment
	haveStart bool
	haveEnd   bool
	haveText  bool
}

func (b *block) complete() bool {
	return b != nil && b.haveStart && b.haveEnd && b.haveText
}

// parseBlocks only opens a block on a line that is exactly a segment header,
// so narration text mentioning the word never splits a block.
func parseBlocks(content string) []Segment {
	var segments []Segment
	var current *block
	flush := func() {
		if current.complete() {
			segments = append(segments, current.seg)
		}
		current = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if match := blockHeader.FindStringSubmatch(line); match != nil {
			flush()
			if index, err := strconv.Atoi(match[1]); err == nil && index > 0 {
				current = &block{seg: Segment{Index: index}}
			}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Start":
			current.seg.Start, current.haveStart = parseSeconds(value)
		case "End":
			current.seg.End, current.haveEnd = parseSeconds(value)
		case "Text":
			current.seg.Text, current.haveText = value, true
		}
	}
	flush()
	return segments
}

func parseLegacy(content string) []Segment {
	var segments []Segment
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		match := legacyLine.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		start, _ := strconv.ParseFloat(match[1], 64)
		end, _ := strconv.ParseFloat(match[2], 64)
		segments = append(segments, Segment{
			Index: i + 1,
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(match[3]),
		})
	}
	return segments
}

func parseSeconds(value string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "s"), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// FixedSegments splits narration of the given duration into windows of
// length seconds, spreading the words of text proportionally across them.
func FixedSegments(duration, length float64, text string) []Segment {
	if duration <= 0 || length <= 0 {
		return nil
	}
	count := int(math.Ceil(duration / length))
	words := strings.Fields(text)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * length
		end := math.Min(duration, start+length)
		lo := i * len(words) / count
		hi := (i + 1) * len(words) / count
		segments = append(segments, Segment{
			Index: i + 1,
			Start: start,
			End:   end,
			Text:  strings.Join(words[lo:hi], " "),
		})
	}
	return segments
}
