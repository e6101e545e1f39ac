// Package mock provides a summarize.Generator that needs no API key.
package mock

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Generator returns the first sentence of the transcript embedded in the
// prompt, truncated to MaxRunes.
type Generator struct {
	MaxRunes int
	Err      error
}

// New creates a mock generator.
func New() *Generator {
	return &Generator{MaxRunes: 100}
}

// Name returns "mock".
func (g *Generator) Name() string {
	return "mock"
}

// Generate extracts the text between the prompt markers and shortens it.
func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}

	text := prompt
	if _, after, ok := strings.Cut(text, "文本內容：\n"); ok {
		text = after
	}
	if before, _, ok := strings.Cut(text, "\n\n摘要："); ok {
		text = before
	}
	text = strings.TrimSpace(text)

	if i := strings.IndexAny(text, "。！？.!?"); i >= 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		text = text[:i+size]
	}

	runes := []rune(text)
	if g.MaxRunes > 0 && len(runes) > g.MaxRunes {
		text = string(runes[:g.MaxRunes])
	}
	return "摘要：" + text, nil
}
