// Package timeline extracts temporally anchored events from narrative text
// and describes the shape of the story's time: phases, span, structure and
// pacing.
package timeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
	"github.com/brunobiangulo/gonarrate/relation"
)

// MarkerKind classifies a temporal expression.
type MarkerKind string

const (
	Absolute        MarkerKind = "absolute"
	RelativePast    MarkerKind = "relative_past"
	RelativePresent MarkerKind = "relative_present"
	RelativeFuture  MarkerKind = "relative_future"
	TimeOfDay       MarkerKind = "time_of_day"
	Season          MarkerKind = "season"
)

// MarkerKinds is the canonical marker order.
var MarkerKinds = []MarkerKind{Absolute, RelativePast, RelativePresent, RelativeFuture, TimeOfDay, Season}

// Sequence is an ordering cue ("then", "finally").
type Sequence string

const (
	Beginning    Sequence = "beginning"
	Continuation Sequence = "continuation"
	Ending       Sequence = "ending"
	Simultaneous Sequence = "simultaneous"
	Flashback    Sequence = "flashback"
)

// Sequences is the canonical sequence order.
var Sequences = []Sequence{Beginning, Continuation, Ending, Simultaneous, Flashback}

// EventType classifies what happens in an event.
type EventType string

const (
	Action         EventType = "action"
	Dialogue       EventType = "dialogue"
	Discovery      EventType = "discovery"
	Transformation EventType = "transformation"
	Meeting        EventType = "meeting"
	Departure      EventType = "departure"
	Conflict       EventType = "conflict"
	Resolution     EventType = "resolution"
	General        EventType = "general"
)

// EventTypes lists the typed events in precedence order. General has no
// indicators and is the fallback.
var EventTypes = []EventType{Action, Dialogue, Discovery, Transformation, Meeting, Departure, Conflict, Resolution}

// Structure is the overall ordering of the narrative.
type Structure string

const (
	Linear        Structure = "linear"
	WithFlashback Structure = "flashback"
	FlashForward  Structure = "flash-forward"
	NonLinear     Structure = "non-linear"
)

// Pacing is how densely action-like events follow one another.
type Pacing string

const (
	Brief    Pacing = "brief"
	Fast     Pacing = "fast-paced"
	Moderate Pacing = "moderate"
	Slow     Pacing = "slow-paced"
)

// TimeSpan is the rough duration the events cover.
type TimeSpan string

const (
	Years       TimeSpan = "years"
	Months      TimeSpan = "months"
	Weeks       TimeSpan = "weeks"
	Days        TimeSpan = "days"
	Hours       TimeSpan = "hours"
	Unspecified TimeSpan = "unspecified"
	Unknown     TimeSpan = "unknown"
)

// Certainty of an event anchored by a temporal marker, and of one found
// through a sequence cue alone.
const (
	MarkedCertainty = 0.8
	CuedCertainty   = 0.5
)

// NoEvents is the summary used when nothing was found.
const NoEvents = "No significant temporal events detected."

const maxDescription = 100

// Marker is one temporal expression.
type Marker struct {
	Passage int        `json:"passage"`
	Kind    MarkerKind `json:"kind"`
	Text    string     `json:"text"`
	Start   int        `json:"start"`
	End     int        `json:"end"`
}

// Event is one sentence anchored in time.
type Event struct {
	ID          string     `json:"id"`
	Order       int        `json:"order"`
	Passage     int        `json:"passage"`
	Unit        int        `json:"unit"`
	Description string     `json:"description"`
	Marker      string     `json:"marker,omitempty"`
	MarkerKind  MarkerKind `json:"marker_kind,omitempty"`
	Sequence    Sequence   `json:"sequence,omitempty"`
	Type        EventType  `json:"type"`
	Characters  []string   `json:"characters"`
	Certainty   float64    `json:"certainty"`
}

// Phase groups consecutive events.
type Phase struct {
	Name   string   `json:"name"`
	Events []string `json:"events"`
}

// Result is the timeline facet of a text or document.
type Result struct {
	Events           []Event            `json:"events"`
	Markers          []Marker           `json:"markers"`
	MarkerCounts     map[MarkerKind]int `json:"marker_counts"`
	EventCounts      map[EventType]int  `json:"event_counts"`
	Phases           []Phase            `json:"phases"`
	Structure        Structure          `json:"structure"`
	HasFlashback     bool               `json:"has_flashback"`
	HasFlashForward  bool               `json:"has_flash_forward"`
	Pacing           Pacing             `json:"pacing"`
	TimeSpan         TimeSpan           `json:"time_span"`
	AverageCertainty float64            `json:"average_certainty"`
	Summary          string             `json:"summary"`
}

// Default returns the result for text without events.
func Default() Result {
	r := Result{Events: []Event{}, Markers: []Marker{}}
	finish(&r)
	return r
}

// MentionFinder locates character names in text.
type MentionFinder interface {
	Mentions(text string, units []chunker.Unit) []relation.Mention
}

var datePatterns = []struct {
	kind MarkerKind
	re   *regexp.Regexp
}{
	{Absolute, regexp.MustCompile(`(?i)\b(?:in|year|circa|around)\s+\d{4}\b`)},
	{Absolute, regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?\b`)},
	{Absolute, regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)},
	{RelativePast, regexp.MustCompile(`(?i)\b\d+\s+(?:days?|weeks?|months?|years?)\s+ago\b`)},
	{RelativeFuture, regexp.MustCompile(`(?i)\bin\s+\d+\s+(?:days?|weeks?|months?|years?)\b`)},
	{TimeOfDay, regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b|\b\d{1,2}:\d{2}\b`)},
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

// Engine is the timeline analyzer. It is safe for concurrent use.
type Engine struct {
	people  MentionFinder
	chunker *chunker.Chunker
	lex     atomic.Pointer[compiled]
}

// New builds an Engine that takes character names from people.
func New(people MentionFinder, opts ...Option) *Engine {
	e := &Engine{people: people}
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

// Analyze extracts the events of text. units is the decomposition of text;
// when nil the engine decomposes text itself. Each unit holding a temporal
// marker or a sequence cue becomes one event.
func (e *Engine) Analyze(ctx context.Context, text string, units []chunker.Unit) (Result, error) {
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
	markers := findMarkers(text, tokens, lex)
	cues := lex.sequences.Scan(tokens)
	kinds := lex.events.Scan(tokens)
	var mentions []relation.Mention
	if e.people != nil {
		mentions = e.people.Mentions(text, units)
	}

	res := Result{Markers: markers, Events: []Event{}}
	for _, c := range cues {
		if c.Key == Flashback {
			res.HasFlashback = true
		}
	}
	res.HasFlashForward = len(lex.forward.Scan(tokens)) > 0

	for k, u := range units {
		ev := Event{Unit: k, Type: General, Characters: []string{}, Certainty: CuedCertainty}
		anchored := false
		for _, m := range markers {
			if m.Start >= u.Start && m.Start < u.End {
				ev.Marker, ev.MarkerKind, ev.Certainty = m.Text, m.Kind, MarkedCertainty
				anchored = true
				break
			}
		}
		for _, c := range cues {
			if c.Start >= u.Start && c.Start < u.End {
				ev.Sequence = c.Key
				anchored = true
				break
			}
		}
		if !anchored {
			continue
		}
		ev.Type = eventType(kinds, u)
		seen := make(map[string]bool)
		for _, m := range mentions {
			if m.Start >= u.Start && m.Start < u.End && !seen[m.Name] {
				seen[m.Name] = true
				ev.Characters = append(ev.Characters, m.Name)
			}
		}
		ev.Description = describe(u.Text)
		res.Events = append(res.Events, ev)
	}
	finish(&res)
	return res, nil
}

// findMarkers merges lexicon and pattern matches, dropping any match that
// overlaps an earlier or longer one.
func findMarkers(text string, tokens []lexicon.Token, lex *compiled) []Marker {
	var all []Marker
	for _, h := range lex.markers.Scan(tokens) {
		all = append(all, Marker{Kind: h.Key, Text: text[h.Start:h.End], Start: h.Start, End: h.End})
	}
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			all = append(all, Marker{Kind: p.kind, Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})
	out := []Marker{}
	end := -1
	for _, m := range all {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

func eventType(hits []lexicon.Hit[EventType], u chunker.Unit) EventType {
	for _, t := range EventTypes {
		for _, h := range hits {
			if h.Key == t && h.Start >= u.Start && h.Start < u.End {
				return t
			}
		}
	}
	return General
}

func describe(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxDescription {
		return s
	}
	return string([]rune(s)[:maxDescription]) + "..."
}

// Merge joins per-passage results in passage order and recomputes the
// aggregates over the whole document.
func Merge(parts []Result) Result {
	out := Result{Events: []Event{}, Markers: []Marker{}}
	for p, r := range parts {
		for _, ev := range r.Events {
			ev.Passage = p
			out.Events = append(out.Events, ev)
		}
		for _, m := range r.Markers {
			m.Passage = p
			out.Markers = append(out.Markers, m)
		}
		out.HasFlashback = out.HasFlashback || r.HasFlashback
		out.HasFlashForward = out.HasFlashForward || r.HasFlashForward
	}
	finish(&out)
	return out
}

// finish numbers the events and derives every aggregate from them.
func finish(r *Result) {
	r.MarkerCounts = make(map[MarkerKind]int, len(MarkerKinds))
	for _, k := range MarkerKinds {
		r.MarkerCounts[k] = 0
	}
	for _, m := range r.Markers {
		r.MarkerCounts[m.Kind]++
	}
	r.EventCounts = make(map[EventType]int, len(EventTypes)+1)
	for _, t := range EventTypes {
		r.EventCounts[t] = 0
	}
	r.EventCounts[General] = 0
	certainty := 0.0
	for i := range r.Events {
		r.Events[i].ID = fmt.Sprintf("E%d", i)
		r.Events[i].Order = i
		r.EventCounts[r.Events[i].Type]++
		certainty += r.Events[i].Certainty
	}
	r.AverageCertainty = 0
	if n := len(r.Events); n > 0 {
		r.AverageCertainty = certainty / float64(n)
	}

	r.Phases = phases(r.Events)
	r.TimeSpan = span(r.Events)
	r.Pacing = pacing(r.Events)
	switch {
	case r.HasFlashback && r.HasFlashForward:
		r.Structure = NonLinear
	case r.HasFlashback:
		r.Structure = WithFlashback
	case r.HasFlashForward:
		r.Structure = FlashForward
	default:
		r.Structure = Linear
	}

	if len(r.Events) == 0 {
		r.Summary = NoEvents
		return
	}
	r.Summary = fmt.Sprintf("Detected %d events with %d temporal markers. Narrative type: %s. Pacing: %s.",
		len(r.Events), len(r.Markers), r.Structure, r.Pacing)
}

// phases splits the events into beginning, middle and ending thirds; three
// or fewer events form a single main phase.
func phases(events []Event) []Phase {
	ids := func(evs []Event) []string {
		out := make([]string, len(evs))
		for i, ev := range evs {
			out[i] = ev.ID
		}
		return out
	}
	n := len(events)
	switch {
	case n == 0:
		return []Phase{}
	case n <= 3:
		return []Phase{{Name: "main", Events: ids(events)}}
	}
	third := n / 3
	return []Phase{
		{Name: "beginning", Events: ids(events[:third])},
		{Name: "middle", Events: ids(events[third : 2*third])},
		{Name: "ending", Events: ids(events[2*third:])},
	}
}

// span takes the coarsest unit any event marker mentions.
func span(events []Event) TimeSpan {
	if len(events) == 0 {
		return Unknown
	}
	has := func(words ...string) bool {
		for _, ev := range events {
			m := strings.ToLower(ev.Marker)
			for _, w := range words {
				if strings.Contains(m, w) {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("year"):
		return Years
	case has("month"):
		return Months
	case has("week"):
		return Weeks
	case has("day", "morning", "night"):
		return Days
	case has("hour"):
		return Hours
	}
	return Unspecified
}

func pacing(events []Event) Pacing {
	if len(events) < 3 {
		return Brief
	}
	active := 0
	for _, ev := range events {
		switch ev.Type {
		case Action, Conflict, Transformation:
			active++
		}
	}
	share := float64(active) / float64(len(events))
	switch {
	case share > 0.5:
		return Fast
	case share < 0.2:
		return Slow
	}
	return Moderate
}
