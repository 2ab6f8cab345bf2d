package gonarrate

import (
	"unicode/utf8"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
)

// excerptMaxLen is the approximate maximum character length for an excerpt.
const excerptMaxLen = 300

// excerpt returns the one or two sentences of a matched passage that share
// the most significant words with the query. Falls back to the opening
// sentence when nothing overlaps.
func excerpt(c *chunker.Chunker, passage, query string) string {
	units := c.Decompose(passage)
	if len(units) == 0 {
		return ""
	}
	want := significantWords(query)

	scores := make([]int, len(units))
	best := 0
	for i, u := range units {
		for w := range significantWords(u.Text) {
			if _, ok := want[w]; ok {
				scores[i]++
			}
		}
		if scores[i] > scores[best] {
			best = i
		}
	}

	result := units[best].Text
	if scores[best] == 0 || utf8.RuneCountInString(result) >= excerptMaxLen {
		return clip(result)
	}

	// Add the better-scoring neighbour if it fits.
	adj, adjScore := -1, 0
	for _, d := range []int{1, -1} {
		j := best + d
		if j >= 0 && j < len(units) && scores[j] > adjScore {
			adj, adjScore = j, scores[j]
		}
	}
	if adj >= 0 {
		combined := result + " " + units[adj].Text
		if adj < best {
			combined = units[adj].Text + " " + result
		}
		if utf8.RuneCountInString(combined) <= excerptMaxLen {
			result = combined
		}
	}
	return result
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= excerptMaxLen {
		return s
	}
	return string([]rune(s)[:excerptMaxLen]) + "…"
}

// significantWords returns the lowercased words of at least four letters
// that are not stop words.
func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, tok := range lexicon.Tokenize(text) {
		if utf8.RuneCountInString(tok.Lower) >= 4 && !stopWords.Has(tok.Lower) {
			words[tok.Lower] = struct{}{}
		}
	}
	return words
}

var stopWords = lexicon.NewWordSet(
	"that", "this", "with", "from", "have", "been", "were", "they",
	"their", "will", "would", "could", "should", "about", "which", "there",
	"these", "those", "then", "than", "them", "what", "when", "where",
	"your", "more", "some", "such", "only", "also", "very", "just",
	"into", "over", "each", "does", "most", "after", "before", "other",
	"being", "same", "both", "between",
)
