package essay

import (
	"fmt"
	"strings"
	"time"

	"lessonreel/internal/params"
)

const (
	baseSystemMessage     = "You are an expert educational content creator."
	metadataSystemMessage = "You are an expert at extracting visual details for AI image generation. Be specific and concise."
	wordsPerMinute        = 150
	metadataExcerptRunes  = 2000
)

var emotionTones = map[string]string{
	"soft_angelic":   "gentle, soothing, and compassionate",
	"lecture":        "academic, authoritative, and professorial",
	"rhythmical":     "flowing with musical rhythm and cadence",
	"dramatic":       "expressive, dynamic, and theatrical",
	"conversational": "casual, friendly, and approachable",
	"mysterious":     "suspenseful, enigmatic, and intriguing",
	"energetic":      "upbeat, excited, and motivational",
	"contemplative":  "reflective, philosophical, and meditative",
	"storyteller":    "narrative-driven with vivid imagery",
}

// SystemMessage returns the essay system prompt with the tone instruction for
// style. Unknown styles are passed through verbatim; "neutral" and empty add
// nothing.
func SystemMessage(style string) string {
	style = strings.TrimSpace(style)
	if style == "" || style == "neutral" {
		return baseSystemMessage
	}
	tone, ok := emotionTones[style]
	if !ok {
		tone = style
	}
	return fmt.Sprintf("%s Write in a %s tone and style.", baseSystemMessage, tone)
}

// TargetWords converts a reading length in seconds to an approximate word
// count at a comfortable narration pace.
func TargetWords(readingSeconds int) int {
	words := readingSeconds * wordsPerMinute / 60
	if words < 50 {
		return 50
	}
	return words
}

// UserPrompt returns the caller's prompt, or a default built from the topic
// and reading length.
func UserPrompt(req params.Request) string {
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		return prompt
	}
	return fmt.Sprintf(
		"Write an engaging educational essay about %q for narration. It should take about %d seconds to read aloud (roughly %d words). "+
			"Use plain paragraphs separated by blank lines, no headings or lists. "+
			"Give it a short title and, when the topic suits it, three multiple-choice quiz questions about the essay.",
		req.Topic, req.ReadingLength, TargetWords(req.ReadingLength),
	)
}

// MetadataPrompt asks for the visual context shared by every illustration.
func MetadataPrompt(topic, article string) string {
	runes := []rune(article)
	if len(runes) > metadataExcerptRunes {
		article = string(runes[:metadataExcerptRunes])
	}
	return fmt.Sprintf(`Analyze this essay about %q and extract key visual information for AI image generation.

Essay:
%s

Describe the geographic setting, the time period, the people and their dress, the visual style (art style, palette, lighting) and the overall atmosphere.

Return 2-4 concise sentences formatted as:
"Setting: [place]. Time: [era]. Background: [landscape and architecture]. Visual style: [style, palette, lighting]. People: [brief description]. Atmosphere: [mood]."`, topic, article)
}

// FallbackMetadata is used when metadata extraction fails.
func FallbackMetadata(topic string) string {
	return "Visual context: " + topic
}

// Description renders youtubedescription.txt.
func Description(title, slug string, lessonDate time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learn about %s\n\n", title)
	b.WriteString("Generated by lessonreel\n")
	fmt.Fprintf(&b, "Slug: %s\n", slug)
	if !lessonDate.IsZero() {
		fmt.Fprintf(&b, "Lesson date: %s (%s)\n", lessonDate.Format(params.DateLayout), lessonDate.Weekday())
	}
	return b.String()
}
