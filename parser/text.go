package parser

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/brunobiangulo/gonarrate/chunker"
)

// TextParser handles plain text and markdown manuscripts.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md", "text"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text file %s is not valid UTF-8", path)
	}
	return &ParseResult{
		Passages: fromChunks(chunker.Passages(chunker.Normalize(string(data))), 0),
		Method:   "native",
	}, nil
}

func fromChunks(cs []chunker.Passage, page int) []Passage {
	out := make([]Passage, 0, len(cs))
	for _, c := range cs {
		out = append(out, Passage{Heading: c.Heading, Text: c.Text, PageNumber: page})
	}
	return out
}
