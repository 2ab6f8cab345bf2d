package dialogue

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// keySpeechVerbs is the only key of the dialogue override section.
const keySpeechVerbs = "speech_verbs"

// Lexicons holds the word lists of the dialogue engine.
type Lexicons struct {
	SpeechVerbs []string `json:"speech_verbs"`
}

// DefaultLexicons returns the built-in speech verbs.
func DefaultLexicons() Lexicons {
	return Lexicons{
		SpeechVerbs: []string{
			"said", "says", "say", "asked", "asks", "replied", "replies", "answered",
			"whispered", "shouted", "exclaimed", "muttered", "murmured", "yelled",
			"screamed", "cried", "wondered", "questioned", "stated", "declared",
			"announced", "called", "added", "continued", "insisted", "snapped",
			"sighed", "told",
		},
	}
}

// With returns a copy of l with the lists of the dialogue section of o
// replaced.
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{SpeechVerbs: slices.Clone(l.SpeechVerbs)}
	for key, list := range o.Section(lexicon.SectionDialogue) {
		if key != keySpeechVerbs {
			return Lexicons{}, fmt.Errorf("unknown dialogue key %q", key)
		}
		out.SpeechVerbs = list
	}
	return out, nil
}

type compiled struct {
	source Lexicons
	verbs  lexicon.WordSet
}

func compile(l Lexicons) *compiled {
	return &compiled{source: l, verbs: lexicon.NewWordSet(l.SpeechVerbs...)}
}
