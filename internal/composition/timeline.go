package composition

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"lessonreel/internal/artifacts"
	"lessonreel/internal/transcript"
)

// minGap is the shortest silence between segments worth its own clip.
const minGap = 0.01

// Entry is one clip of the final video.
type Entry struct {
	// Image is the 1-based segment index whose illustration is shown.
	Image int
	// Segment is the index of the segment the clip belongs to. For gaps it is
	// the segment that follows the gap.
	Segment int
	Start   float64
	End     float64
	Gap     bool
}

// Duration is the clip length in seconds.
func (e Entry) Duration() float64 {
	return e.End - e.Start
}

// ClipName is the file name of the rendered clip.
func (e Entry) ClipName() string {
	if e.Gap {
		return "gap_" + artifacts.ImageName(e.Segment) + ".mp4"
	}
	return artifacts.ImageName(e.Segment) + ".mp4"
}

// Timeline lays out clips for segments. Segments without an image are left
// out and their time is covered by holding the previous image; a gap before
// the first illustrated segment shows that segment's image.
func Timeline(segments []transcript.Segment, hasImage func(index int) bool) []Entry {
	entries := make([]Entry, 0, len(segments))
	cursor := 0.0
	previous := 0
	for i, segment := range segments {
		index := i + 1
		if !hasImage(index) || segment.End <= segment.Start {
			continue
		}
		if segment.Start-cursor > minGap {
			hold := previous
			if hold == 0 {
				hold = index
			}
			entries = append(entries, Entry{Image: hold, Segment: index, Start: cursor, End: segment.Start, Gap: true})
		}
		entries = append(entries, Entry{Image: index, Segment: index, Start: segment.Start, End: segment.End})
		cursor = segment.End
		previous = index
	}
	return entries
}

var legacyImageName = regexp.MustCompile(`^(\d{3})\.(png|txt)$`)

// RenameLegacyImages renames three-digit image files (001.png) to the
// five-digit scheme. Existing five-digit files are never overwritten.
func RenameLegacyImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	renamed := 0
	for _, entry := range entries {
		match := legacyImageName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		var index int
		if _, err := fmt.Sscanf(match[1], "%d", &index); err != nil {
			continue
		}
		target := filepath.Join(dir, artifacts.ImageName(index)+"."+match[2])
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := os.Rename(filepath.Join(dir, entry.Name()), target); err != nil {
			return renamed, err
		}
		renamed++
	}
	return renamed, nil
}
