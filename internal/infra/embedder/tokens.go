package embedder

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

type tokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter is used when the BPE ranks cannot be loaded.
type estimateCounter struct{}

// Count provides a rough, upper-biased token count.
func (estimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	// ~1 token per 2 runes, never below the word count
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}

func newTokenCounter(encoding string, logger *slog.Logger) tokenCounter {
	if strings.TrimSpace(encoding) == "" {
		encoding = defaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating token counts", "encoding", encoding, "error", err)
		return estimateCounter{}
	}
	return tiktokenCounter{enc: enc}
}
