package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Kind is the coarse classification of a unit.
type Kind string

const (
	KindDialogue  Kind = "dialogue"
	KindNarration Kind = "narration"
)

// Unit is one sentence-granularity span of the input text.
type Unit struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Length int    `json:"length"` // characters, not bytes
	Kind   Kind   `json:"kind"`
	Start  int    `json:"start"` // byte offset into the normalised text
	End    int    `json:"end"`
}

// Config controls the decomposition behaviour.
type Config struct {
	MaxUnits      int      // Stop after this many units; 0 means unlimited.
	Abbreviations []string // Words that never end a sentence when followed by ".".
}

var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "st", "jr", "sr", "prof", "capt", "col",
	"gen", "lt", "sgt", "rev", "hon", "mt", "vs",
}

// Chunker splits narrative text into semantic units.
type Chunker struct {
	cfg   Config
	abbrv map[string]bool
}

// New returns a Chunker with the given configuration.
// A nil Abbreviations list is replaced with the built-in one.
func New(cfg Config) *Chunker {
	if cfg.Abbreviations == nil {
		cfg.Abbreviations = defaultAbbreviations
	}
	if cfg.MaxUnits < 0 {
		cfg.MaxUnits = 0
	}
	abbrv := make(map[string]bool, len(cfg.Abbreviations))
	for _, a := range cfg.Abbreviations {
		abbrv[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return &Chunker{cfg: cfg, abbrv: abbrv}
}

// Config returns the settings the chunker was built with.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Normalize returns text in Unicode NFC form. Unit offsets always refer to
// the normalised text, so callers that slice the text by offset must
// normalise it first.
func Normalize(text string) string {
	if norm.NFC.IsNormalString(text) {
		return text
	}
	return norm.NFC.String(text)
}

// Decompose splits text into ordered units. Sentences end at a run of
// terminal punctuation (plus any closing quotes) followed by whitespace or
// the end of the text; a blank line also ends a unit. Whitespace-only input
// yields an empty slice.
func (c *Chunker) Decompose(text string) []Unit {
	text = Normalize(text)
	units := make([]Unit, 0)
	start := -1

	// emit closes the current unit at end and reports whether more units
	// may be produced.
	emit := func(end int) bool {
		if start < 0 {
			return true
		}
		span := strings.TrimRightFunc(text[start:end], unicode.IsSpace)
		if span != "" {
			units = append(units, newUnit(len(units), span, start))
		}
		start = -1
		return c.cfg.MaxUnits == 0 || len(units) < c.cfg.MaxUnits
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case start < 0:
			if !unicode.IsSpace(r) {
				start = i
			}
			i += size
		case isTerminal(r):
			end := skipRun(text, i)
			if (end == len(text) || spaceAt(text, end)) && !c.abbreviation(text[start:i], text[i:end], text[end:]) {
				if !emit(end) {
					return units
				}
			}
			i = end
		case r == '\n' && blankLineAt(text, i+size):
			if !emit(i) {
				return units
			}
			i += size
		default:
			i += size
		}
	}
	emit(len(text))
	return units
}

func newUnit(index int, span string, start int) Unit {
	kind := KindNarration
	if strings.ContainsAny(span, "\"“”«»") {
		kind = KindDialogue
	}
	return Unit{
		Index:  index,
		Text:   span,
		Length: utf8.RuneCountInString(span),
		Kind:   kind,
		Start:  start,
		End:    start + len(span),
	}
}

// abbreviation reports whether a single "." after before belongs to an
// abbreviation or an initial rather than ending the sentence.
func (c *Chunker) abbreviation(before, punct, after string) bool {
	if punct != "." {
		return false
	}
	rest, word := lastWord(before)
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(r) || r == 'I' {
			return false
		}
		return initial(rest, after)
	}
	return c.abbrv[strings.ToLower(word)]
}

// initial reports whether a capital letter followed by "." is a name
// initial: it comes after a capitalised word or another initial ("John F.
// Kennedy"), another initial comes next ("Sam J. R. Smith"), or it opens
// the unit before a capitalised word ("J. Watson").
func initial(before, after string) bool {
	next := strings.TrimLeftFunc(after, unicode.IsSpace)
	r, size := utf8.DecodeRuneInString(next)
	_, prev := lastWord(before)
	if prev == "" {
		return unicode.IsUpper(r)
	}
	if p, _ := utf8.DecodeRuneInString(prev); unicode.IsUpper(p) {
		return true
	}
	return unicode.IsUpper(r) && strings.HasPrefix(next[size:], ".")
}

// lastWord splits s before its last whitespace-separated word, with leading
// quotes and brackets stripped from the word.
func lastWord(s string) (rest, word string) {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	return s[:idx+1], strings.TrimLeft(s[idx+1:], "\"“'‘(")
}

func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

// skipRun returns the offset just past a run of terminal punctuation and
// closing quotes starting at i.
func skipRun(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isTerminal(r) && !isCloser(r) {
			break
		}
		i += size
	}
	return i
}

func spaceAt(text string, i int) bool {
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

// blankLineAt reports whether only horizontal whitespace separates i from
// the next newline.
func blankLineAt(text string, i int) bool {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\r':
			i++
		case '\n':
			return true
		default:
			return false
		}
	}
	return false
}
