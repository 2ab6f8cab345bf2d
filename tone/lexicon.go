package tone

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Lexicons holds the tone term lists and the intensity cue words.
type Lexicons struct {
	Tones        map[Tone][]string `json:"tones"`
	Intensifiers []string          `json:"intensifiers"`
}

// DefaultLexicons returns the built-in lists.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Tones: map[Tone][]string{
			Formal: {
				"therefore", "furthermore", "consequently", "moreover", "thus", "hence",
				"whereas", "indeed", "accordingly", "nevertheless", "notwithstanding",
				"hereby", "shall", "sir", "madam", "my lord", "my lady", "your majesty",
				"if you please",
			},
			Informal: {
				"yeah", "gonna", "wanna", "kinda", "pretty much", "gotta", "hey", "okay",
				"yep", "nope", "dude", "guys", "stuff", "cool", "you know", "ain't", "y'all",
			},
			Dramatic: {
				"suddenly", "unexpectedly", "shocking", "intense", "dramatic", "all at once",
				"screamed", "exploded", "thundered", "shattered", "collapsed", "desperate",
				"without warning", "crashed", "burst",
			},
			Humorous: {
				"funny", "hilarious", "amusing", "comical", "laugh", "laughed", "laughing",
				"joke", "joked", "grinned", "giggled", "chuckled", "silly", "absurd", "witty",
				"ridiculous",
			},
			Serious: {
				"serious", "grave", "solemn", "critical", "important", "duty",
				"responsibility", "consequence", "consequences", "gravely", "somber",
				"sombre", "earnest",
			},
			Optimistic: {
				"hope", "hopeful", "bright", "positive", "promising", "encouraging", "dream",
				"dreams", "brighter", "new beginning", "look forward", "confident", "believe",
			},
			Pessimistic: {
				"hopeless", "grim", "bleak", "despair", "unfortunate", "doomed", "futile",
				"ruin", "ruined", "no way out", "never again", "gloomy", "dread",
			},
		},
		Intensifiers: []string{
			"very", "extremely", "absolutely", "completely", "totally", "utterly",
			"incredibly", "amazingly", "so", "really", "truly", "deeply", "terribly",
			"awfully", "highly", "entirely",
		},
	}
}

// With returns a copy of l with the lists named in the tones and cues
// sections of o replaced.
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{
		Tones:        make(map[Tone][]string, len(Tones)),
		Intensifiers: l.Intensifiers,
	}
	for k, v := range l.Tones {
		out.Tones[k] = v
	}
	for key, list := range o.Section(lexicon.SectionTones) {
		t := Tone(key)
		if !slices.Contains(Tones, t) {
			return Lexicons{}, fmt.Errorf("unknown tone %q", key)
		}
		out.Tones[t] = list
	}
	for key, list := range o.Section(lexicon.SectionCues) {
		if key != "intensifiers" {
			return Lexicons{}, fmt.Errorf("unknown cue list %q", key)
		}
		out.Intensifiers = list
	}
	return out, nil
}

type compiled struct {
	source       Lexicons
	tones        *lexicon.Table[Tone]
	intensifiers lexicon.WordSet
}

func compile(l Lexicons) *compiled {
	return &compiled{
		source:       l,
		tones:        lexicon.NewTable(Tones, l.Tones),
		intensifiers: lexicon.NewWordSet(l.Intensifiers...),
	}
}
