package textutil

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ValidateIdentifier checks that value can be embedded in a file name without
// escaping: one or more ASCII letters, digits, dots, underscores or hyphens,
// and not "." or "..". Identifiers are rejected rather than rewritten so two
// different identifiers can never map to the same file.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if value == "." || value == ".." {
		return fmt.Errorf("%s %q is not allowed", field, value)
	}
	if len(value) > 128 {
		return fmt.Errorf("%s is longer than 128 characters", field)
	}
	for _, r := range value {
		if !isIdentifierRune(r) {
			return fmt.Errorf("%s %q contains %q; allowed characters are A-Z a-z 0-9 . _ - (try %q)", field, value, r, Slugify(value))
		}
	}
	return nil
}

func isIdentifierRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// Slugify converts free text to a lowercase hyphenated token. Letters and
// digits are kept, runs of anything else collapse to a single hyphen.
// Returns "untitled" for input without letters or digits.
func Slugify(value string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
		default:
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// TitleFromSlug turns "black-holes_101" into "Black Holes 101".
func TitleFromSlug(slug string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range slug {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Lesson"
	}
	return cases.Title(language.Und).String(title)
}

// Truncate shortens value to at most limit runes, appending "..." when cut.
func Truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
