// Package parser turns narrative source files (plain text, PDF manuscripts,
// spreadsheet scripts) into ordered passages ready for analysis.
package parser

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned by Registry.Get for unknown formats.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Passages []Passage // Ordered passages of prose
	Method   string    // "native"
	Metadata map[string]string
}

// Passage is one stretch of narrative to analyse on its own.
type Passage struct {
	Heading    string
	Text       string
	PageNumber int    // 1-based page for PDFs, 0 otherwise
	Speaker    string // set for script rows
	Metadata   map[string]string
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
