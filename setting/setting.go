// Package setting scores the story context of narrative text: when it is
// set, where it is set and which themes run through it.
package setting

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Period is a temporal period.
type Period string

const (
	Past    Period = "past"
	Present Period = "present"
	Future  Period = "future"
)

// Periods is the canonical period order.
var Periods = []Period{Past, Present, Future}

// Place is a spatial setting.
type Place string

const (
	Indoor  Place = "indoor"
	Outdoor Place = "outdoor"
	Urban   Place = "urban"
	Rural   Place = "rural"
)

// Places is the canonical setting order.
var Places = []Place{Indoor, Outdoor, Urban, Rural}

// Theme is a narrative theme.
type Theme string

const (
	Adventure Theme = "adventure"
	Mystery   Theme = "mystery"
	Romance   Theme = "romance"
	Conflict  Theme = "conflict"
	Growth    Theme = "growth"
)

// Themes is the canonical theme order.
var Themes = []Theme{Adventure, Mystery, Romance, Conflict, Growth}

// Marker names the era marker lexicons.
type Marker string

const (
	Historical Marker = "historical"
	Futuristic Marker = "futuristic"
)

// Markers is the canonical marker order.
var Markers = []Marker{Historical, Futuristic}

// Declared thresholds for the era flags.
const (
	DefaultHistoricalThreshold = 0.25
	DefaultFuturisticThreshold = 0.25
)

// LimitedContext is the description used when nothing was detected.
const LimitedContext = "Context information limited."

// maxDescribedThemes is how many themes the description names.
const maxDescribedThemes = 2

// TemporalContext describes when the text is set.
type TemporalContext struct {
	PrimaryPeriod   Period             `json:"primary_period"`
	PeriodScores    map[Period]float64 `json:"period_scores"`
	IsHistorical    bool               `json:"is_historical"`
	IsFuturistic    bool               `json:"is_futuristic"`
	HistoricalScore float64            `json:"historical_score"`
	FuturisticScore float64            `json:"futuristic_score"`
}

// SpatialContext describes where the text is set.
type SpatialContext struct {
	PrimarySetting Place             `json:"primary_setting"`
	SettingScores  map[Place]float64 `json:"setting_scores"`
}

// Result is the context facet of an analysis.
type Result struct {
	TemporalContext    TemporalContext   `json:"temporal_context"`
	SpatialContext     SpatialContext    `json:"spatial_context"`
	Themes             map[Theme]float64 `json:"themes"`
	SettingDescription string            `json:"setting_description"`
}

// Default returns the result for empty input.
func Default() Result {
	return Result{
		TemporalContext: TemporalContext{
			PrimaryPeriod: Periods[0],
			PeriodScores:  lexicon.Zero(Periods),
		},
		SpatialContext: SpatialContext{
			PrimarySetting: Places[0],
			SettingScores:  lexicon.Zero(Places),
		},
		Themes:             lexicon.Zero(Themes),
		SettingDescription: LimitedContext,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds overrides the historical and futuristic thresholds.
func WithThresholds(historical, futuristic float64) Option {
	return func(e *Engine) {
		if historical > 0 && historical <= 1 {
			e.historical = historical
		}
		if futuristic > 0 && futuristic <= 1 {
			e.futuristic = futuristic
		}
	}
}

// WithLexicons replaces the built-in lexicons.
func WithLexicons(l Lexicons) Option {
	return func(e *Engine) { e.lex.Store(compile(l)) }
}

// WithChunker sets the decomposer used when Analyze is called without units.
func WithChunker(c *chunker.Chunker) Option {
	return func(e *Engine) { e.chunker = c }
}

// Engine is the context analyzer. It is safe for concurrent use.
type Engine struct {
	historical float64
	futuristic float64
	chunker    *chunker.Chunker
	lex        atomic.Pointer[compiled]
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		historical: DefaultHistoricalThreshold,
		futuristic: DefaultFuturisticThreshold,
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

	periods := lexicon.Scores(Periods, lex.periods.Count(tokens), n)
	places := lexicon.Scores(Places, lex.places.Count(tokens), n)
	themes := lexicon.Scores(Themes, lex.themes.Count(tokens), n)
	markers := lexicon.Scores(Markers, lex.markers.Count(tokens), n)

	res := Result{
		TemporalContext: TemporalContext{
			PrimaryPeriod:   lexicon.Argmax(Periods, periods),
			PeriodScores:    periods,
			HistoricalScore: markers[Historical],
			FuturisticScore: markers[Futuristic],
			IsHistorical:    markers[Historical] >= e.historical,
			IsFuturistic:    markers[Futuristic] >= e.futuristic,
		},
		SpatialContext: SpatialContext{
			PrimarySetting: lexicon.Argmax(Places, places),
			SettingScores:  places,
		},
		Themes: themes,
	}
	res.SettingDescription = describe(res)
	return res, nil
}

// TopThemes returns up to n themes with a non-zero score, strongest first,
// ties in canonical order.
func TopThemes(themes map[Theme]float64, n int) []Theme {
	var out []Theme
	for _, t := range Themes {
		if themes[t] > 0 {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return themes[out[i]] > themes[out[j]] })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// describe renders "Set in the <period>, in an <setting> environment, with
// themes of <a> and <b>." keeping only the clauses that have evidence.
func describe(r Result) string {
	var parts []string
	located := false
	tc, sc := r.TemporalContext, r.SpatialContext
	if tc.PeriodScores[tc.PrimaryPeriod] > 0 {
		parts = append(parts, "in the "+string(tc.PrimaryPeriod))
		located = true
	}
	if sc.SettingScores[sc.PrimarySetting] > 0 {
		place := string(sc.PrimarySetting)
		parts = append(parts, "in "+lexicon.Article(place)+" "+place+" environment")
		located = true
	}
	if top := TopThemes(r.Themes, maxDescribedThemes); len(top) > 0 {
		names := make([]string, len(top))
		for i, t := range top {
			names[i] = string(t)
		}
		parts = append(parts, "with themes of "+strings.Join(names, " and "))
	}
	switch {
	case len(parts) == 0:
		return LimitedContext
	case !located:
		return "A narrative " + parts[0] + "."
	}
	return "Set " + strings.Join(parts, ", ") + "."
}

