package chunker

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Heading pattern detection
// ---------------------------------------------------------------------------

// headingPatterns are compiled regular expressions for the heading styles
// found in manuscripts and plain-text books.
var headingPatterns = []*regexp.Regexp{
	// "Chapter 1", "CHAPTER TWELVE", "Chapter IV: The Storm"
	regexp.MustCompile(`(?i)^chapter\s+([IVXLCDM]+|\d+|[a-z]+)\b`),
	// "Part One", "Book II", "Act 3", "Scene 2"
	regexp.MustCompile(`(?i)^(part|book|act|scene)\s+([IVXLCDM]+|\d+|[a-z]+)\b`),
	// "Prologue", "Epilogue", "Interlude"
	regexp.MustCompile(`(?i)^(prologue|epilogue|interlude|afterword|foreword)\b`),
	// Markdown-style: "# Heading", "## Sub-heading"
	regexp.MustCompile(`^#{1,6}\s+\S`),
	// Uppercase line (e.g. "THE LONG NIGHT")
	regexp.MustCompile(`^[A-Z][A-Z\s'’]{4,}$`),
}

// IsHeading reports whether a line of text looks like a chapter or part
// heading.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// sceneBreakPattern matches the usual scene separators: "***", "* * *",
// "---", "#", "~~~".
var sceneBreakPattern = regexp.MustCompile(`^([*#~-]\s*){1,}$`)

// IsSceneBreak reports whether a line is a scene separator.
func IsSceneBreak(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || line == "-" {
		return false
	}
	return sceneBreakPattern.MatchString(line)
}

// ---------------------------------------------------------------------------
// Passages
// ---------------------------------------------------------------------------

// Passage is a stretch of prose between headings or scene breaks.
type Passage struct {
	Heading string `json:"heading,omitempty"`
	Text    string `json:"text"`
}

// Passages splits a manuscript at chapter headings and scene breaks. The
// heading in force is carried onto every passage that follows it. Empty
// passages are dropped.
func Passages(text string) []Passage {
	var passages []Passage
	var cur strings.Builder
	heading := ""

	flush := func() {
		body := strings.TrimSpace(cur.String())
		if body != "" {
			passages = append(passages, Passage{Heading: heading, Text: body})
		}
		cur.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case IsSceneBreak(line):
			flush()
		case IsHeading(line) && !strings.ContainsAny(strings.TrimSpace(line), ".?!\""):
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		default:
			cur.WriteString(line)
			cur.WriteByte('\n')
		}
	}
	flush()
	return passages
}
