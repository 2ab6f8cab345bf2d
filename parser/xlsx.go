package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads screenplay-style spreadsheets. A sheet whose header row
// names a "line" (or "dialogue"/"text") column is read as a script, one
// passage per row with the optional "character"/"speaker" column as the
// speaker; other sheets become a single passage of their non-empty cells.
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	passages := make([]Passage, 0)
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		passages = append(passages, sheetPassages(sheet, rows)...)
	}

	if len(passages) == 0 {
		return nil, fmt.Errorf("no text found in XLSX")
	}
	return &ParseResult{Passages: passages, Method: "native"}, nil
}

func sheetPassages(sheet string, rows [][]string) []Passage {
	textCol, speakerCol := scriptColumns(rows[0])
	if textCol < 0 {
		var b strings.Builder
		for _, row := range rows {
			for _, cell := range row {
				if c := strings.TrimSpace(cell); c != "" {
					b.WriteString(c)
					b.WriteByte('\n')
				}
			}
		}
		if b.Len() == 0 {
			return nil
		}
		return []Passage{{Heading: sheet, Text: strings.TrimSpace(b.String())}}
	}

	var out []Passage
	for i, row := range rows[1:] {
		text := strings.TrimSpace(cell(row, textCol))
		if text == "" {
			continue
		}
		out = append(out, Passage{
			Heading: sheet,
			Text:    text,
			Speaker: strings.TrimSpace(cell(row, speakerCol)),
			Metadata: map[string]string{
				"sheet_name": sheet,
				"row":        fmt.Sprintf("%d", i+2),
			},
		})
	}
	return out
}

func scriptColumns(header []string) (text, speaker int) {
	text, speaker = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "line", "dialogue", "text":
			if text < 0 {
				text = i
			}
		case "character", "speaker":
			if speaker < 0 {
				speaker = i
			}
		}
	}
	return text, speaker
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
