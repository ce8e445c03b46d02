package docx

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWriteAndReadParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay_short.docx")
	paragraphs := []string{"Rain & rivers <flow>.", "Second paragraph."}
	if err := Write(path, "The Water Cycle", paragraphs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadParagraphs(path)
	if err != nil {
		t.Fatalf("ReadParagraphs: %v", err)
	}
	want := []string{"The Water Cycle", "Rain & rivers <flow>.", "Second paragraph."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected paragraphs: got %q want %q", got, want)
	}
}

func TestArticleTextSkipsBlankParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.docx")
	if err := Write(path, "", []string{"One.", "  ", "Two."}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	text, err := ArticleText(path)
	if err != nil {
		t.Fatalf("ArticleText: %v", err)
	}
	if text != "One.\n\nTwo." {
		t.Fatalf("unexpected article text: %q", text)
	}
}

func TestReadParagraphsRejectsNonDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadParagraphs(path); err == nil || !strings.Contains(err.Error(), "docx") {
		t.Fatalf("expected docx error, got %v", err)
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("A line.\r\n\r\n\n\nB line.\n")
	if !reflect.DeepEqual(got, []string{"A line.", "B line."}) {
		t.Fatalf("unexpected split: %q", got)
	}
}
