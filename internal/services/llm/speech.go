package llm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultMaxTTSChars = 4000

// SynthesizeToFile renders text to MP3 at path. Text longer than the
// configured character limit is split on sentence boundaries and the MP3
// chunks are concatenated in order. The file is written atomically.
func (c *Client) SynthesizeToFile(ctx context.Context, text, voice, path string) error {
	const op = "audio.speech"
	if err := c.requireKey(op); err != nil {
		return err
	}
	if strings.TrimSpace(voice) == "" {
		voice = c.cfg.TTSVoice
	}
	limit := c.cfg.MaxTTSChars
	if limit <= 0 {
		limit = defaultMaxTTSChars
	}
	chunks := SplitForSpeech(text, limit)
	if len(chunks) == 0 {
		return fmt.Errorf("%s: narration text required", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%s: ensure dir: %w", op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".speech-*.mp3")
	if err != nil {
		return fmt.Errorf("%s: create temp: %w", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	for i, chunk := range chunks {
		audio, err := c.synthesize(ctx, op, chunk, voice)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("%s: chunk %d/%d: %w", op, i+1, len(chunks), err)
		}
		if _, err := tmp.Write(audio); err != nil {
			tmp.Close()
			return fmt.Errorf("%s: write chunk: %w", op, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close temp: %w", op, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: rename: %w", op, err)
	}
	return nil
}

func (c *Client) synthesize(ctx context.Context, op, text, voice string) ([]byte, error) {
	var audio []byte
	err := c.do(ctx, op, func(ctx context.Context) error {
		resp, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
			Input:          text,
			Model:          openai.SpeechModel(c.cfg.TTSModel),
			ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		}, option.WithJSONSet("voice", voice))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		if len(data) == 0 {
			return &emptyContentError{Op: op}
		}
		audio = data
		return nil
	})
	return audio, err
}

// SplitForSpeech breaks text into chunks of at most limit runes. Chunks end on
// sentence boundaries where possible, then on word boundaries; a single word
// longer than limit is cut.
func SplitForSpeech(text string, limit int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}
	add := func(piece string) {
		pieceLen := len([]rune(piece))
		curLen := len([]rune(current.String()))
		switch {
		case curLen == 0:
			current.WriteString(piece)
		case curLen+1+pieceLen <= limit:
			current.WriteByte(' ')
			current.WriteString(piece)
		default:
			flush()
			current.WriteString(piece)
		}
	}

	for _, sentence := range splitSentences(text) {
		if len([]rune(sentence)) <= limit {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			runes := []rune(word)
			for len(runes) > limit {
				flush()
				chunks = append(chunks, string(runes[:limit]))
				runes = runes[limit:]
			}
			add(string(runes))
		}
	}
	flush()
	return chunks
}

func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
