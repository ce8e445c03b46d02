package illustration

import (
	"fmt"
	"strings"

	"lessonreel/internal/config"
)

const defaultSystemPrompt = "You write concise, vivid prompts for an AI image generator. Describe a single scene; never include text, captions or logos."

// SystemPrompt returns the configured system prompt or the default.
func SystemPrompt(images config.Images) string {
	if prompt := strings.TrimSpace(images.SystemPrompt); prompt != "" {
		return prompt
	}
	return defaultSystemPrompt
}

// UserPrompt asks for an illustration prompt for one narration segment.
func UserPrompt(images config.Images, narration string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a prompt for a %s %s illustration from the following narration: %s\n",
		images.Style, images.Mode, strings.TrimSpace(narration))
	if guidance := strings.TrimSpace(images.Guidance); guidance != "" {
		fmt.Fprintf(&b, "Follow this style instruction: %s\n", guidance)
	}
	if negative := strings.TrimSpace(images.NegativeGuidance); negative != "" {
		fmt.Fprintf(&b, "Avoid: %s\n", negative)
	}
	ending := strings.TrimSpace(images.Append)
	if len(images.StyleTags) > 0 {
		tags := strings.Join(images.StyleTags, ", ")
		if ending != "" {
			ending += ", " + tags
		} else {
			ending = tags
		}
	}
	if ending != "" {
		fmt.Fprintf(&b, "End with: %s\n", ending)
	}
	b.WriteString("Respond in one sentence starting with 'Prompt:'")
	return b.String()
}

// WithMetadata appends the essay's visual metadata to a generated prompt.
func WithMetadata(prompt, metadata string) string {
	metadata = strings.TrimSpace(metadata)
	if metadata == "" {
		return prompt
	}
	return prompt + "\n\nEssay Metadata:\n" + metadata
}
