package timeline

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// keyFlashForward names the future-reference list in the timeline section.
const keyFlashForward = "flash_forward"

// Lexicons holds the term lists of the timeline engine.
type Lexicons struct {
	Markers      map[MarkerKind][]string `json:"markers"`
	Sequences    map[Sequence][]string   `json:"sequences"`
	Events       map[EventType][]string  `json:"events"`
	FlashForward []string                `json:"flash_forward"`
}

// DefaultLexicons returns the built-in lists. Month names that double as
// common words ("may", "march") are only matched with a day number.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Markers: map[MarkerKind][]string{
			Absolute: {
				"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
				"sunday", "january", "february", "april", "june", "july", "august",
				"september", "october", "november", "december",
			},
			RelativePast: {
				"yesterday", "last night", "last week", "last month", "last year",
				"previously", "earlier", "before", "once", "formerly", "in the past",
				"back then", "long ago", "years ago", "days ago",
			},
			RelativePresent: {
				"now", "today", "currently", "at the moment", "at present", "right now",
				"this moment", "nowadays", "these days",
			},
			RelativeFuture: {
				"tomorrow", "next day", "next week", "next month", "next year", "soon",
				"later", "eventually", "someday", "in the future", "from now on",
			},
			TimeOfDay: {
				"morning", "noon", "afternoon", "evening", "night", "midnight", "dawn",
				"dusk", "sunrise", "sunset", "tonight",
			},
			Season: {
				"spring", "summer", "autumn", "winter", "rainy season", "dry season",
			},
		},
		Sequences: map[Sequence][]string{
			Beginning: {
				"first", "initially", "at first", "in the beginning", "to begin with",
				"at the start", "once upon a time",
			},
			Continuation: {
				"then", "next", "after that", "afterwards", "subsequently",
				"following that", "later", "soon after", "meanwhile",
			},
			Ending: {
				"finally", "at last", "in the end", "eventually", "ultimately", "lastly",
				"in conclusion",
			},
			Simultaneous: {
				"meanwhile", "at the same time", "simultaneously", "while", "during",
			},
			Flashback: {
				"had been", "had once", "used to", "would often", "remembered",
				"recalled", "thought back",
			},
		},
		Events: map[EventType][]string{
			Action:         {"went", "came", "ran", "walked", "jumped", "fought", "escaped", "climbed", "rode"},
			Dialogue:       {"said", "asked", "replied", "shouted", "whispered", "told"},
			Discovery:      {"found", "discovered", "realized", "realised", "noticed", "saw", "learned"},
			Transformation: {"became", "changed", "transformed", "turned into"},
			Meeting:        {"met", "encountered", "introduced", "greeted"},
			Departure:      {"left", "departed", "went away", "said goodbye"},
			Conflict:       {"fought", "argued", "battled", "confronted"},
			Resolution:     {"resolved", "solved", "fixed", "ended", "concluded"},
		},
		FlashForward: []string{"will", "going to", "shall", "foreshadowed"},
	}
}

// With returns a copy of l with the lists named in the timeline section of
// o replaced. Keys are marker kinds, sequences, event types or
// "flash_forward".
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{
		Markers:      clone(l.Markers),
		Sequences:    clone(l.Sequences),
		Events:       clone(l.Events),
		FlashForward: slices.Clone(l.FlashForward),
	}
	for key, list := range o.Section(lexicon.SectionTimeline) {
		switch {
		case key == keyFlashForward:
			out.FlashForward = list
		case slices.Contains(MarkerKinds, MarkerKind(key)):
			out.Markers[MarkerKind(key)] = list
		case slices.Contains(Sequences, Sequence(key)):
			out.Sequences[Sequence(key)] = list
		case slices.Contains(EventTypes, EventType(key)):
			out.Events[EventType(key)] = list
		default:
			return Lexicons{}, fmt.Errorf("unknown timeline key %q", key)
		}
	}
	return out, nil
}

func clone[K ~string](m map[K][]string) map[K][]string {
	out := make(map[K][]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type compiled struct {
	source    Lexicons
	markers   *lexicon.Table[MarkerKind]
	sequences *lexicon.Table[Sequence]
	events    *lexicon.Table[EventType]
	forward   *lexicon.Table[string]
}

func compile(l Lexicons) *compiled {
	return &compiled{
		source:    l,
		markers:   lexicon.NewTable(MarkerKinds, l.Markers),
		sequences: lexicon.NewTable(Sequences, l.Sequences),
		events:    lexicon.NewTable(EventTypes, l.Events),
		forward: lexicon.NewTable([]string{keyFlashForward},
			map[string][]string{keyFlashForward: l.FlashForward}),
	}
}
