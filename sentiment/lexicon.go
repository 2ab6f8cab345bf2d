package sentiment

import (
	"context"
	"fmt"
	"slices"

	"github.com/brunobiangulo/gonarrate/lexicon"
)

// negationWindow is how many tokens before a polarity term are searched for
// a negator.
const negationWindow = 3

// Lexicons holds the term lists used by the rule-based path.
type Lexicons struct {
	Positive []string             `json:"positive"`
	Negative []string             `json:"negative"`
	Negators []string             `json:"negators"`
	Emotions map[Emotion][]string `json:"emotions"`
}

// DefaultLexicons returns the built-in term lists.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Positive: []string{
			"good", "great", "excellent", "wonderful", "happy", "happiness", "joy", "joyful",
			"love", "loves", "loved", "loving", "lovely", "overjoyed", "delighted", "pleased", "glad",
			"beautiful", "brilliant", "amazing", "awesome", "best", "fantastic", "perfect",
			"success", "victory", "win", "won", "hope", "hopeful", "kind", "gentle", "warm",
			"bright", "cheerful", "smile", "smiles", "smiled", "laughs", "laughed", "triumph", "peace", "peaceful",
			"safe", "grateful", "proud", "excited", "thrilled", "elated", "content", "free",
		},
		Negative: []string{
			"bad", "terrible", "awful", "horrible", "hate", "hated", "sad", "angry", "fear",
			"afraid", "scared", "terrified", "furious", "miserable", "pain", "painful",
			"grief", "sorrow", "cruel", "death", "dead", "died", "kill", "killed", "lost",
			"lose", "hates", "failure", "fail", "failed", "worst", "wrong", "broken", "lonely", "tears",
			"wept", "cried", "suffering", "despair", "hopeless", "dread", "disgusting",
			"upset", "worried", "betrayed", "ruined",
		},
		Negators: []string{
			"not", "no", "never", "none", "nobody", "nothing", "neither", "nowhere",
			"hardly", "barely", "scarcely", "without", "don't", "doesn't", "didn't",
			"won't", "wouldn't", "can't", "cannot", "couldn't", "isn't", "aren't",
			"wasn't", "weren't",
		},
		Emotions: map[Emotion][]string{
			Joy: {
				"happy", "joyful", "joy", "delighted", "pleased", "cheerful", "excited",
				"overjoyed", "glad", "elated", "thrilled", "smiled", "smiling", "laughed",
				"laughing", "content",
			},
			Sadness: {
				"sad", "unhappy", "depressed", "melancholy", "sorrowful", "sorrow", "grief",
				"grieving", "wept", "weeping", "tears", "mourned", "lonely", "miserable",
				"heartbroken",
			},
			Anger: {
				"angry", "furious", "enraged", "mad", "irritated", "rage", "fury", "wrath",
				"seething", "livid", "resentful", "annoyed",
			},
			Fear: {
				"afraid", "scared", "terrified", "fearful", "anxious", "fear", "dread",
				"panic", "horror", "trembling", "frightened", "nervous",
			},
			Surprise: {
				"surprised", "amazed", "astonished", "shocked", "startled", "stunned",
				"unexpected", "astonishment", "gasped",
			},
			Love: {
				"love", "loves", "loved", "loving", "affection", "adore", "adored", "cherish",
				"cherished", "devoted", "beloved", "tender", "passion",
			},
		},
	}
}

// With returns a copy of l with the lists named in the polarity and
// emotion sections of o replaced.
func (l Lexicons) With(o lexicon.Overrides) (Lexicons, error) {
	out := Lexicons{
		Positive: l.Positive,
		Negative: l.Negative,
		Negators: l.Negators,
		Emotions: make(map[Emotion][]string, len(Emotions)),
	}
	for k, v := range l.Emotions {
		out.Emotions[k] = v
	}

	for key, list := range o.Section(lexicon.SectionPolarity) {
		switch key {
		case "positive":
			out.Positive = list
		case "negative":
			out.Negative = list
		case "negators":
			out.Negators = list
		default:
			return Lexicons{}, fmt.Errorf("unknown polarity list %q", key)
		}
	}
	for key, list := range o.Section(lexicon.SectionEmotions) {
		e := Emotion(key)
		if !slices.Contains(Emotions, e) {
			return Lexicons{}, fmt.Errorf("unknown emotion %q", key)
		}
		out.Emotions[e] = list
	}
	return out, nil
}

// Lexicon is the rule-based strategy. It never fails.
type Lexicon struct {
	source   Lexicons
	polarity *lexicon.Table[Label]
	negators lexicon.WordSet
	emotions *lexicon.Table[Emotion]
}

// NewLexicon compiles l.
func NewLexicon(l Lexicons) *Lexicon {
	return &Lexicon{
		source: l,
		polarity: lexicon.NewTable([]Label{Positive, Negative}, map[Label][]string{
			Positive: l.Positive,
			Negative: l.Negative,
		}),
		negators: lexicon.NewWordSet(l.Negators...),
		emotions: lexicon.NewTable(Emotions, l.Emotions),
	}
}

// Lexicons returns the source lists.
func (x *Lexicon) Lexicons() Lexicons {
	return x.source
}

// Counts returns the positive and negative hit counts of text. A hit with a
// negator among the preceding tokens counts for the other side.
func (x *Lexicon) Counts(text string) (pos, neg int) {
	tokens := lexicon.Tokenize(text)
	for _, h := range x.polarity.Scan(tokens) {
		side := h.Key
		if x.negated(tokens, h.Token) {
			side = flip(side)
		}
		if side == Positive {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// Verdict implements Strategy. The label is the majority side (NEUTRAL on a
// tie); score is 0.5 plus half the normalised margin.
func (x *Lexicon) Verdict(_ context.Context, text string) (Verdict, error) {
	pos, neg := x.Counts(text)
	if pos == neg {
		return Verdict{Label: Neutral, Score: 0.5, Source: SourceLexicon}, nil
	}
	total := float64(pos + neg)
	polarity := float64(pos-neg) / total
	v := Verdict{
		Score:    lexicon.Clamp01(0.5 + 0.5*abs(polarity)),
		Polarity: polarity,
		Source:   SourceLexicon,
	}
	if pos > neg {
		v.Label = Positive
	} else {
		v.Label = Negative
	}
	return v, nil
}

// Polarity returns the lexicon label of text.
func (x *Lexicon) Polarity(text string) Label {
	v, _ := x.Verdict(context.Background(), text)
	return v.Label
}

// Emotions scores every emotion as hits per unit, clipped to [0,1].
// Negated emotion terms are not counted.
func (x *Lexicon) Emotions(text string, units int) map[Emotion]float64 {
	if units < 1 {
		units = 1
	}
	tokens := lexicon.Tokenize(text)
	counts := make(map[Emotion]int, len(Emotions))
	for _, h := range x.emotions.Scan(tokens) {
		if !x.negated(tokens, h.Token) {
			counts[h.Key]++
		}
	}
	return lexicon.Scores(Emotions, counts, units)
}

func (x *Lexicon) negated(tokens []lexicon.Token, at int) bool {
	for i := max(0, at-negationWindow); i < at; i++ {
		if x.negators.Has(tokens[i].Lower) {
			return true
		}
	}
	return false
}

func flip(l Label) Label {
	if l == Positive {
		return Negative
	}
	return Positive
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
