package artifacts

import (
	"fmt"
	"path/filepath"
)

// Artifact file names inside a workflow output folder.
const (
	EssayDocx          = "essay_short.docx"
	EssayJSON          = "essay.json"
	EssayMetadata      = "essay_metadata.txt"
	NarrationAudio     = "narration_short.mp3"
	Timestamps         = "narration_timestamps_short.txt"
	YouTubeTitle       = "youtubetitle.txt"
	YouTubeDescription = "youtubedescription.txt"
	YouTubeURL         = "youtube_url.txt"
	QuizData           = "quiz_data.json"
	ImagesDir          = "images"
	GeneratedPrompts   = "generated_prompts_short.txt"
	ImageSummary       = "image_generation_summary.txt"
	FinalVideo         = "final_video.mp4"
	LogsDir            = "logs"
	LockFile           = ".workflow.lock"
	OverlaidDir        = "overlaid"
	SegmentsDir        = "segments"
	ConcatList         = "concat_list.txt"
	ImageVideoLog      = "image2vid.txt"
	ImageSequenceVideo = "images_only.mp4"
)

// Layout resolves artifact paths for one workflow's output folder:
// <workspace>/<slug>/output.
type Layout struct {
	Workspace string
	Slug      string
}

// New returns the layout for slug under workspace.
func New(workspace, slug string) Layout {
	return Layout{Workspace: workspace, Slug: slug}
}

// Dir is the output folder.
func (l Layout) Dir() string {
	return filepath.Join(l.Workspace, l.Slug, "output")
}

// Path joins name onto the output folder.
func (l Layout) Path(name string) string {
	return filepath.Join(l.Dir(), name)
}

// Images is the folder holding per-segment illustrations.
func (l Layout) Images() string {
	return l.Path(ImagesDir)
}

// ImageName is the zero-padded file stem for segment index (1-based).
func ImageName(index int) string {
	return fmt.Sprintf("%05d", index)
}

// ImagePath returns the PNG path for segment index.
func (l Layout) ImagePath(index int) string {
	return filepath.Join(l.Images(), ImageName(index)+".png")
}

// ImagePromptPath returns the prompt text path stored next to each image.
func (l Layout) ImagePromptPath(index int) string {
	return filepath.Join(l.Images(), ImageName(index)+".txt")
}

// Thumbnail is the first image copied to <slug>.png in the output folder.
func (l Layout) Thumbnail() string {
	return l.Path(l.Slug + ".png")
}

// StepLog is where the orchestrator keeps the captured output of one step.
func (l Layout) StepLog(index int, name string) string {
	return filepath.Join(l.Path(LogsDir), fmt.Sprintf("step%d-%s.log", index, name))
}

// ThumbnailURL is the public path the web front end serves the thumbnail from.
func ThumbnailURL(slug string) string {
	return "/images/" + slug + ".png"
}
