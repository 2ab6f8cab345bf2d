// Package dialogue extracts quoted speech from narrative text and attributes
// each line to a speaker.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
	"github.com/brunobiangulo/gonarrate/relation"
)

// DefaultWindow is how far, in bytes, attribution looks on either side of a
// quote.
const DefaultWindow = 100

// NoDialogue is the summary used when no quoted speech was found.
const NoDialogue = "No dialogue detected in the text."

// Attribution says how a line got its speaker.
type Attribution string

const (
	// SpeechVerb: a character name next to a speech verb ("said Tom").
	SpeechVerb Attribution = "speech_verb"
	// Proximity: the nearest character name outside quotes.
	Proximity Attribution = "proximity"
	// Alternation: the speaker two lines back in a two-party exchange.
	Alternation  Attribution = "alternation"
	Unattributed Attribution = "none"
)

// Line is one quoted utterance.
type Line struct {
	Passage     int         `json:"passage"`
	Index       int         `json:"index"`
	Text        string      `json:"text"`
	Start       int         `json:"start"` // byte offsets of the quote marks
	End         int         `json:"end"`
	Words       int         `json:"words"`
	Speaker     string      `json:"speaker,omitempty"`
	Attribution Attribution `json:"attribution"`
}

// Result is the dialogue facet of a text or document.
type Result struct {
	Lines              []Line         `json:"lines"`
	Speakers           []string       `json:"speakers"`
	LineCounts         map[string]int `json:"line_counts"`
	Turns              int            `json:"turns"`
	AverageWords       float64        `json:"average_words"`
	DialogueChars      int            `json:"dialogue_chars"`
	TextChars          int            `json:"text_chars"`
	DialoguePercentage float64        `json:"dialogue_percentage"`
	Summary            string         `json:"summary"`
}

// Default returns the result for text without dialogue.
func Default() Result {
	return Result{
		Lines:      []Line{},
		Speakers:   []string{},
		LineCounts: map[string]int{},
		Summary:    NoDialogue,
	}
}

// MentionFinder locates character names in text.
type MentionFinder interface {
	Mentions(text string, units []chunker.Unit) []relation.Mention
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow overrides the attribution window.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithLexicons replaces the built-in speech verbs.
func WithLexicons(l Lexicons) Option {
	return func(e *Engine) { e.lex.Store(compile(l)) }
}

// Engine is the dialogue analyzer. It is safe for concurrent use.
type Engine struct {
	people MentionFinder
	window int
	lex    atomic.Pointer[compiled]
}

// New builds an Engine that takes character names from people.
func New(people MentionFinder, opts ...Option) *Engine {
	e := &Engine{people: people, window: DefaultWindow}
	e.lex.Store(compile(DefaultLexicons()))
	for _, fn := range opts {
		fn(e)
	}
	return e
}

// SetLexicons atomically replaces the lexicons.
func (e *Engine) SetLexicons(l Lexicons) {
	e.lex.Store(compile(l))
}

// Lexicons returns the lexicons in force.
func (e *Engine) Lexicons() Lexicons {
	return e.lex.Load().source
}

// Analyze extracts and attributes the dialogue of text. units is the
// decomposition of text; when nil the mention finder decomposes it.
func (e *Engine) Analyze(ctx context.Context, text string, units []chunker.Unit) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Default(), err
	}
	text = chunker.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return Default(), nil
	}

	spans := quotes(text)
	if len(spans) == 0 {
		res := Default()
		res.TextChars = utf8.RuneCountInString(text)
		return res, nil
	}

	var mentions []relation.Mention
	if e.people != nil {
		for _, m := range e.people.Mentions(text, units) {
			if !inside(spans, m.Start) {
				mentions = append(mentions, m)
			}
		}
	}
	tags := e.tags(text, spans, mentions)

	lines := make([]Line, len(spans))
	// floor keeps a tag that trailed one quote from also leading the next.
	floor := 0
	for i, sp := range spans {
		lo, hi := e.windows(spans, i, len(text))
		lo = max(lo, floor)
		after := trailing(sp.text)
		ln := Line{
			Index:       i,
			Text:        sp.text,
			Start:       sp.start,
			End:         sp.end,
			Words:       len(strings.Fields(sp.text)),
			Attribution: Unattributed,
		}
		if t, ok := pickTag(tags, sp, lo, hi, after); ok {
			ln.Speaker, ln.Attribution = t.name, SpeechVerb
			if t.start >= sp.end {
				floor = t.end
			}
		} else if name, ok := pickNearest(mentions, sp, lo, hi, after); ok {
			ln.Speaker, ln.Attribution = name, Proximity
		} else if i >= 2 && alternates(lines[i-2], lines[i-1]) {
			ln.Speaker, ln.Attribution = lines[i-2].Speaker, Alternation
		}
		lines[i] = ln
	}

	res := Result{Lines: lines, TextChars: utf8.RuneCountInString(text)}
	finish(&res)
	return res, nil
}

// Merge joins per-passage results in passage order and recomputes the
// aggregates over the whole document.
func Merge(parts []Result) Result {
	out := Default()
	for p, r := range parts {
		for _, ln := range r.Lines {
			ln.Passage = p
			ln.Index = len(out.Lines)
			out.Lines = append(out.Lines, ln)
		}
		out.TextChars += r.TextChars
	}
	finish(&out)
	return out
}

func finish(r *Result) {
	r.Speakers = []string{}
	r.LineCounts = map[string]int{}
	r.Turns = 0
	r.DialogueChars = 0
	words := 0
	last := ""
	for _, ln := range r.Lines {
		words += ln.Words
		r.DialogueChars += utf8.RuneCountInString(ln.Text)
		if ln.Speaker == "" {
			continue
		}
		if r.LineCounts[ln.Speaker] == 0 {
			r.Speakers = append(r.Speakers, ln.Speaker)
		}
		r.LineCounts[ln.Speaker]++
		if ln.Speaker != last {
			r.Turns++
			last = ln.Speaker
		}
	}
	if len(r.Lines) == 0 {
		r.AverageWords, r.DialoguePercentage = 0, 0
		r.Summary = NoDialogue
		return
	}
	r.AverageWords = float64(words) / float64(len(r.Lines))
	if r.TextChars > 0 {
		r.DialoguePercentage = 100 * float64(r.DialogueChars) / float64(r.TextChars)
	}
	r.Summary = fmt.Sprintf("Detected %d dialogue segment(s) with %d unique speaker(s). Dialogue comprises %.1f%% of the text.",
		len(r.Lines), len(r.Speakers), r.DialoguePercentage)
}

// span is one closed quotation; start and end include the quote marks.
type span struct {
	start, end int
	text       string
}

var closers = map[rune][]rune{
	'"': {'"', '”'},
	'“': {'”', '"'},
	'«': {'»'},
	'「': {'」'},
	'『': {'』'},
}

// quotes finds closed quotations. A quotation left open at a blank line or
// at the end of the text is skipped. Single quotes are ignored, they double
// as apostrophes.
func quotes(text string) []span {
	var out []span
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		want, ok := closers[r]
		if !ok {
			i += size
			continue
		}
		body := i + size
		end := closeAt(text[body:], want)
		if end < 0 {
			i = body
			continue
		}
		_, csize := utf8.DecodeRuneInString(text[body+end:])
		if inner := strings.TrimSpace(text[body : body+end]); inner != "" {
			out = append(out, span{start: i, end: body + end + csize, text: inner})
		}
		i = body + end + csize
	}
	return out
}

func closeAt(s string, want []rune) int {
	for j, r := range s {
		if r == '\n' && strings.HasPrefix(strings.TrimLeft(s[j+1:], " \t\r"), "\n") {
			return -1
		}
		for _, w := range want {
			if r == w {
				return j
			}
		}
	}
	return -1
}

func inside(spans []span, pos int) bool {
	for _, sp := range spans {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

// windows bounds the text around quote i by the attribution window and the
// neighbouring quotes.
func (e *Engine) windows(spans []span, i, n int) (lo, hi int) {
	lo = max(spans[i].start-e.window, 0)
	if i > 0 {
		lo = max(lo, spans[i-1].end)
	}
	hi = min(spans[i].end+e.window, n)
	if i+1 < len(spans) {
		hi = min(hi, spans[i+1].start)
	}
	return lo, hi
}

// trailing reports whether attribution may follow the quote. A line closed
// by a full stop ("Hello.") is attributed from before.
func trailing(quoted string) bool {
	r, _ := utf8.DecodeLastRuneInString(quoted)
	return r != '.' && r != '。'
}

// tag is a name standing next to a speech verb.
type tag struct {
	name       string
	start, end int
}

func (e *Engine) tags(text string, spans []span, mentions []relation.Mention) []tag {
	verbs := e.lex.Load().verbs
	var out []tag
	for _, tok := range lexicon.Tokenize(text) {
		if !verbs.Has(tok.Lower) || inside(spans, tok.Start) {
			continue
		}
		for _, m := range mentions {
			switch {
			case m.End <= tok.Start && blank(text[m.End:tok.Start]):
				out = append(out, tag{name: m.Name, start: m.Start, end: tok.End})
			case m.Start >= tok.End && blank(text[tok.End:m.Start]):
				out = append(out, tag{name: m.Name, start: tok.Start, end: m.End})
			}
		}
	}
	return out
}

func blank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == "" && s != ""
}

// pickTag prefers the closest tag after the quote, when attribution may
// follow it, then the closest tag before.
func pickTag(tags []tag, sp span, lo, hi int, after bool) (tag, bool) {
	best, dist := -1, -1
	if after {
		for k, t := range tags {
			if t.start >= sp.end && t.end <= hi && (dist < 0 || t.start-sp.end < dist) {
				best, dist = k, t.start-sp.end
			}
		}
	}
	if best < 0 {
		for k, t := range tags {
			if t.start >= lo && t.end <= sp.start && (dist < 0 || sp.start-t.end < dist) {
				best, dist = k, sp.start-t.end
			}
		}
	}
	if best < 0 {
		return tag{}, false
	}
	return tags[best], true
}

func pickNearest(mentions []relation.Mention, sp span, lo, hi int, after bool) (string, bool) {
	best, dist := "", -1
	for _, m := range mentions {
		d := -1
		switch {
		case after && m.Start >= sp.end && m.End <= hi:
			d = m.Start - sp.end
		case m.Start >= lo && m.End <= sp.start:
			d = sp.start - m.End
		}
		if d >= 0 && (dist < 0 || d < dist) {
			best, dist = m.Name, d
		}
	}
	return best, best != ""
}

func alternates(a, b Line) bool {
	return a.Speaker != "" && b.Speaker != "" && a.Speaker != b.Speaker
}
