// Package tone scores narrative text across a fixed tone taxonomy and
// derives a mood and an intensity from it. It is purely rule-based.
package tone

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
	"github.com/brunobiangulo/gonarrate/sentiment"
)

// Tone is one key of the tone taxonomy.
type Tone string

const (
	Formal      Tone = "formal"
	Informal    Tone = "informal"
	Dramatic    Tone = "dramatic"
	Humorous    Tone = "humorous"
	Serious     Tone = "serious"
	Optimistic  Tone = "optimistic"
	Pessimistic Tone = "pessimistic"
)

// Tones is the canonical tone order. PrimaryTone ties go to the earlier key.
var Tones = []Tone{Formal, Informal, Dramatic, Humorous, Serious, Optimistic, Pessimistic}

// Intensity weights.
const (
	weightSpread       = 0.35
	weightExclamation  = 0.25
	weightCaps         = 0.15
	weightIntensifiers = 0.25
)

// Result is the tone facet of an analysis.
type Result struct {
	PrimaryTone Tone             `json:"primary_tone"`
	ToneScores  map[Tone]float64 `json:"tone_scores"`
	Mood        Mood             `json:"mood"`
	Intensity   float64          `json:"intensity"`
}

// Default returns the result for empty input.
func Default() Result {
	return Result{
		PrimaryTone: Tones[0],
		ToneScores:  lexicon.Zero(Tones),
		Mood:        MoodNeutral,
	}
}

// PolaritySource supplies the rule-based polarity label of a text.
// *sentiment.Lexicon implements it.
type PolaritySource interface {
	Polarity(text string) sentiment.Label
}

// Option configures an Engine.
type Option func(*Engine)

// WithLexicons replaces the built-in lexicons.
func WithLexicons(l Lexicons) Option {
	return func(e *Engine) { e.lex.Store(compile(l)) }
}

// WithChunker sets the decomposer used when Analyze is called without units.
func WithChunker(c *chunker.Chunker) Option {
	return func(e *Engine) { e.chunker = c }
}

// Engine is the tone analyzer. It is safe for concurrent use.
type Engine struct {
	polarity PolaritySource
	chunker  *chunker.Chunker
	lex      atomic.Pointer[compiled]
}

// New builds an Engine. A nil polarity source is replaced with the default
// sentiment lexicon.
func New(polarity PolaritySource, opts ...Option) *Engine {
	if polarity == nil {
		polarity = sentiment.NewLexicon(sentiment.DefaultLexicons())
	}
	e := &Engine{polarity: polarity}
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

// Analyze scores text. units is the decomposition of text; when nil the
// engine decomposes text itself.
func (e *Engine) Analyze(ctx context.Context, text string, units []chunker.Unit) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Default(), err
	}
	if strings.TrimSpace(text) == "" {
		return Default(), nil
	}
	if units == nil {
		units = e.chunker.Decompose(text)
	}
	n := max(len(units), 1)

	lex := e.lex.Load()
	tokens := lexicon.Tokenize(text)
	counts := lex.tones.Count(tokens)
	scores := lexicon.Scores(Tones, counts, n)
	primary := lexicon.Argmax(Tones, scores)

	mood := MoodNeutral
	if counts[primary] > 0 {
		mood = MoodFor(primary, e.polarity.Polarity(text))
	}

	return Result{
		PrimaryTone: primary,
		ToneScores:  scores,
		Mood:        mood,
		Intensity:   intensity(text, tokens, scores, lex.intensifiers.CountIn(tokens), n),
	}, nil
}

// intensity combines the tone spread with literal cues, each in [0,1].
func intensity(text string, tokens []lexicon.Token, scores map[Tone]float64, intensifiers, units int) float64 {
	var top, sum float64
	for _, t := range Tones {
		s := scores[t]
		sum += s
		top = max(top, s)
	}
	spread := top - sum/float64(len(Tones))

	exclamation := lexicon.Density(strings.Count(text, "!"), units)
	caps := capsRatio(tokens)
	boost := lexicon.Density(intensifiers, units)

	return lexicon.Clamp01(weightSpread*spread +
		weightExclamation*exclamation +
		weightCaps*caps +
		weightIntensifiers*boost)
}

// capsRatio is the share of tokens written entirely in capitals. Single
// letters ("I", "A") are ignored.
func capsRatio(tokens []lexicon.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	shouted := 0
	for _, tok := range tokens {
		if isShouted(tok.Text) {
			shouted++
		}
	}
	return float64(shouted) / float64(len(tokens))
}

func isShouted(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}
