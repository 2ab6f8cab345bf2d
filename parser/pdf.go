package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/brunobiangulo/gonarrate/chunker"
)

// PDFParser extracts prose from PDF manuscripts page by page.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	passages := make([]Passage, 0)
	heading := ""

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = stripPageNumbers(text)
		if strings.TrimSpace(text) == "" {
			continue
		}

		for _, ps := range fromChunks(chunker.Passages(chunker.Normalize(text)), i) {
			// A chapter heading stays in force across page breaks.
			if ps.Heading == "" {
				ps.Heading = heading
			}
			heading = ps.Heading
			passages = append(passages, ps)
		}
	}

	return &ParseResult{
		Passages: passages,
		Method:   "native",
		Metadata: map[string]string{"pages": fmt.Sprintf("%d", totalPages)},
	}, nil
}

// stripPageNumbers drops lines that hold nothing but a page number, such as
// "12" or "- 12 -".
func stripPageNumbers(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isPageNumber(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isPageNumber(line string) bool {
	s := strings.Trim(strings.TrimSpace(line), "-– ")
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
