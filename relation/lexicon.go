package relation

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// Lexicons holds the indicator lists per relationship type and the words
// that are never character names.
type Lexicons struct {
	Indicators map[Type][]string `json:"indicators"`
	Exclude    []string          `json:"exclude"`
}

// DefaultLexicons returns the built-in lists. Inflected forms are listed
// explicitly so the indicator span is the literal word in the text.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Indicators: map[Type][]string{
			Family: {
				"mother", "father", "sister", "brother", "parent", "parents", "child",
				"children", "son", "daughter", "family", "relative", "cousin", "uncle",
				"aunt", "grandmother", "grandfather", "niece", "nephew", "twin", "mom",
				"dad", "mum", "siblings",
			},
			Friendship: {
				"friend", "friends", "friendship", "best friend", "companion",
				"companions", "buddy", "pal", "ally", "allies", "comrade", "befriended",
			},
			Romantic: {
				"love", "loves", "loved", "loving", "lover", "beloved", "romance", "kiss",
				"kissed", "kisses", "married", "marry", "wife", "husband", "spouse",
				"fiancé", "fiancée", "fiance", "sweetheart", "darling", "adored", "adores",
				"courted", "embraced",
			},
			Professional: {
				"colleague", "colleagues", "coworker", "co-worker", "boss", "employee",
				"employer", "partner", "partners", "hired", "manager", "assistant",
				"client", "servant",
			},
			Antagonistic: {
				"enemy", "enemies", "rival", "rivals", "opponent", "adversary", "foe",
				"hated", "hates", "hate", "betrayed", "fought", "attacked", "despised",
				"nemesis",
			},
			Mentor: {
				"teacher", "mentor", "mentored", "guide", "master", "instructor", "taught",
				"teaches", "apprentice", "student", "pupil", "tutor", "trained", "disciple",
			},
		},
		Exclude: []string{
			// pronouns and determiners
			"i", "he", "she", "it", "we", "they", "you", "his", "her", "hers", "their",
			"our", "my", "your", "its", "him", "them", "me", "us", "the", "a", "an",
			"this", "that", "these", "those", "there", "here", "someone", "nobody",
			"everyone", "everybody", "nothing", "everything", "every", "each", "all",
			"some", "many", "most", "one", "two", "three",
			// conjunctions, prepositions, adverbs that start sentences
			"then", "when", "where", "what", "who", "why", "how", "which", "while",
			"after", "before", "as", "at", "in", "on", "of", "for", "from", "with",
			"without", "but", "and", "or", "so", "yet", "if", "though", "although",
			"because", "once", "now", "later", "soon", "still", "even", "just", "only",
			"also", "not", "no", "yes", "oh", "ah", "well", "meanwhile", "perhaps",
			"maybe", "again", "never", "always", "sometimes", "yesterday", "today",
			"tomorrow", "tonight", "please", "thank", "thanks", "hello", "goodbye",
			"dear", "let", "out", "up", "down", "over", "under", "into", "through",
			"around", "inside", "outside", "behind", "beyond", "along", "across",
			"near", "far", "long", "twice",
			// auxiliaries and common imperatives
			"do", "does", "did", "don't", "can't", "is", "are", "was", "were", "will",
			"would", "could", "should", "can", "may", "might", "must", "have", "has",
			"had", "be", "been", "go", "come", "look", "see", "listen", "wait", "stop",
			"run",
			// titles
			"mr", "mrs", "ms", "dr", "sir", "lady", "lord", "miss", "madam", "captain",
			"king", "queen", "prince", "princess", "professor", "saint", "st",
			// calendar
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
			"sunday", "january", "february", "march", "april", "june", "july",
			"august", "september", "october", "november", "december",
			// manuscript structure
			"chapter", "part", "book", "act", "scene", "prologue", "epilogue",
		},
	}
}

// With returns a copy of l with the lists named in the relations and names
// sections of o replaced.
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{
		Indicators: make(map[Type][]string, len(Types)),
		Exclude:    l.Exclude,
	}
	for k, v := range l.Indicators {
		out.Indicators[k] = v
	}
	for key, list := range o.Section(lexicon.SectionRelations) {
		t := Type(key)
		if !slices.Contains(Types, t) {
			return Lexicons{}, fmt.Errorf("unknown relationship type %q", key)
		}
		out.Indicators[t] = list
	}
	for key, list := range o.Section(lexicon.SectionNames) {
		if key != "exclude" {
			return Lexicons{}, fmt.Errorf("unknown names list %q", key)
		}
		out.Exclude = list
	}
	return out, nil
}

type compiled struct {
	source     Lexicons
	indicators *lexicon.Table[Type]
	exclude    lexicon.WordSet
}

func compile(l Lexicons) *compiled {
	return &compiled{
		source:     l,
		indicators: lexicon.NewTable(Types, l.Indicators),
		exclude:    lexicon.NewWordSet(l.Exclude...),
	}
}
