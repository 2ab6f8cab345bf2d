// Package relation extracts characters and typed pairwise relationships
// from narrative text using capitalisation heuristics and indicator
// lexicons.
package relation

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Type is one key of the relationship taxonomy.
type Type string

const (
	Family       Type = "family"
	Friendship   Type = "friendship"
	Romantic     Type = "romantic"
	Professional Type = "professional"
	Antagonistic Type = "antagonistic"
	Mentor       Type = "mentor"
)

// Types is the canonical relationship type order.
var Types = []Type{Family, Friendship, Romantic, Professional, Antagonistic, Mentor}

// Defaults.
const (
	DefaultWindow        = 1
	DefaultMaxCharacters = 20
	DefaultMaxSummaryLen = 480
)

// NoRelationships is the summary used when no edge was found.
const NoRelationships = "No significant character relationships detected."

// Edge is one typed relationship between two characters. Character1 is the
// character mentioned first in the text.
type Edge struct {
	Character1 string `json:"character1"`
	Character2 string `json:"character2"`
	Type       Type   `json:"type"`
	Indicator  string `json:"indicator"`
}

// Result is the relationship facet of an analysis.
type Result struct {
	Characters         []string `json:"characters"`
	Relationships      []Edge   `json:"relationships"`
	InteractionSummary string   `json:"interaction_summary"`
}

// Default returns the empty result.
func Default() Result {
	return Result{
		Characters:         []string{},
		Relationships:      []Edge{},
		InteractionSummary: NoRelationships,
	}
}

// TypeCounts tallies edges per type. Every type is present.
func (r Result) TypeCounts() map[Type]int {
	counts := make(map[Type]int, len(Types))
	for _, t := range Types {
		counts[t] = 0
	}
	for _, e := range r.Relationships {
		counts[e.Type]++
	}
	return counts
}

// MarshalJSON adds the derived relationship_types histogram.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		RelationshipTypes map[Type]int `json:"relationship_types"`
	}{plain(r), r.TypeCounts()})
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets how many units apart two mentions may be and still
// count as co-occurring. 0 means same unit only.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.window = n
		}
	}
}

// WithMaxCharacters caps the character list.
func WithMaxCharacters(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCharacters = n
		}
	}
}

// WithMaxSummaryLen bounds the interaction summary, in bytes.
func WithMaxSummaryLen(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSummaryLen = n
		}
	}
}

// WithLexicons replaces the built-in lexicons.
func WithLexicons(l Lexicons) Option {
	return func(e *Engine) { e.lex.Store(compile(l)) }
}

// WithChunker sets the decomposer used when Extract is called without units.
func WithChunker(c *chunker.Chunker) Option {
	return func(e *Engine) { e.chunker = c }
}

// Engine is the relationship extractor. It is safe for concurrent use.
type Engine struct {
	window        int
	maxCharacters int
	maxSummaryLen int
	chunker       *chunker.Chunker
	lex           atomic.Pointer[compiled]
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		window:        DefaultWindow,
		maxCharacters: DefaultMaxCharacters,
		maxSummaryLen: DefaultMaxSummaryLen,
	}
	e.lex.Store(compile(DefaultLexicons()))
	for _, fn := range opts {
		fn(e)
	}
	if e.chunker == nil {
		e.chunker = chunker.New(chunker.Config{})
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

// Extract finds characters and relationships in text. units must be the
// decomposition of the NFC-normalised text; when nil the engine
// decomposes text itself.
func (e *Engine) Extract(ctx context.Context, text string, units []chunker.Unit) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Default(), err
	}
	text = chunker.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return Default(), nil
	}
	if units == nil {
		units = e.chunker.Decompose(text)
	}
	if len(units) == 0 {
		units = []chunker.Unit{{Text: text, Start: 0, End: len(text)}}
	}

	lex := e.lex.Load()
	tokens := lexicon.Tokenize(text)
	people := findCharacters(text, tokens, units, lex, e.maxCharacters)

	res := Default()
	res.Characters = append(res.Characters, people.names...)
	if len(people.names) < 2 {
		return res, nil
	}

	hits := lex.indicators.Scan(tokens)
	for i := 0; i < len(people.names); i++ {
		for j := i + 1; j < len(people.names); j++ {
			if err := ctx.Err(); err != nil {
				return Default(), err
			}
			if edge, ok := e.strongest(text, units, people.mentions[i], people.mentions[j], hits); ok {
				edge.Character1 = people.names[i]
				edge.Character2 = people.names[j]
				res.Relationships = append(res.Relationships, edge)
			}
		}
	}
	res.InteractionSummary = summarize(res.Relationships, e.maxSummaryLen)
	return res, nil
}

type candidate struct {
	distance int
	rank     int
	start    int
	edge     Edge
}

func (c candidate) less(o candidate) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	if c.rank != o.rank {
		return c.rank < o.rank
	}
	return c.start < o.start
}

// strongest picks the indicator closest to any co-occurring pair of
// mentions of a and b.
func (e *Engine) strongest(text string, units []chunker.Unit, as, bs []mention, hits []lexicon.Hit[Type]) (Edge, bool) {
	var best candidate
	found := false
	for _, ma := range as {
		for _, mb := range bs {
			if abs(ma.unit-mb.unit) > e.window {
				continue
			}
			first, second := ma, mb
			if mb.start < ma.start {
				first, second = mb, ma
			}
			lo := units[min(ma.unit, mb.unit)].Start
			hi := units[max(ma.unit, mb.unit)].End
			for _, h := range hits {
				if h.Start < lo || h.End > hi {
					continue
				}
				c := candidate{
					distance: gap(h, first, second),
					rank:     typeRank(h.Key),
					start:    h.Start,
					edge:     Edge{Type: h.Key, Indicator: text[h.Start:h.End]},
				}
				if !found || c.less(best) {
					best, found = c, true
				}
			}
		}
	}
	return best.edge, found
}

// gap is the byte distance from a hit to the stretch of text spanned by two
// mentions; a hit between them is at distance 0.
func gap(h lexicon.Hit[Type], first, second mention) int {
	switch {
	case h.End <= first.start:
		return first.start - h.End
	case h.Start >= second.end:
		return h.Start - second.end
	default:
		return 0
	}
}

func typeRank(t Type) int {
	for i, k := range Types {
		if k == t {
			return i
		}
	}
	return len(Types)
}

// summarize renders one sentence per edge and keeps as many whole
// sentences as fit in limit bytes.
func summarize(edges []Edge, limit int) string {
	if len(edges) == 0 {
		return NoRelationships
	}
	var b strings.Builder
	for _, edge := range edges {
		s := edge.Character1 + " and " + edge.Character2 + " share " + lexicon.Article(string(edge.Type)) + " " + string(edge.Type) + " relationship."
		extra := len(s)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > limit {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return truncate(edges[0].Character1+" and "+edges[0].Character2+" share a relationship.", limit)
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
