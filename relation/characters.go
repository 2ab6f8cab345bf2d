package relation

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brunobiangulo/gonarrate/chunker"
	"github.com/brunobiangulo/gonarrate/lexicon"
)

// mention is one occurrence of a character.
type mention struct {
	start int
	end   int
	unit  int
}

// cast is the ordered character list with the mentions of each character.
type cast struct {
	names    []string
	mentions [][]mention
}

// Mention is one occurrence of a character name in text.
type Mention struct {
	Name  string `json:"name"`
	Start int    `json:"start"` // byte offsets into the normalised text
	End   int    `json:"end"`
}

// Mentions returns every character mention in text, in text order, using
// the same name rules as Extract. units must be the decomposition of the
// NFC-normalised text; when nil the engine decomposes text itself.
func (e *Engine) Mentions(text string, units []chunker.Unit) []Mention {
	text = chunker.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if units == nil {
		units = e.chunker.Decompose(text)
	}
	if len(units) == 0 {
		units = []chunker.Unit{{Text: text, Start: 0, End: len(text)}}
	}
	people := findCharacters(text, lexicon.Tokenize(text), units, e.lex.Load(), e.maxCharacters)
	var out []Mention
	for i, name := range people.names {
		for _, m := range people.mentions[i] {
			out = append(out, Mention{Name: name, Start: m.start, End: m.end})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start < out[b].Start })
	return out
}

// findCharacters collects proper-noun-like names in first-mention order.
//
// A token is a name part when it is capitalised, at least two letters long,
// not written entirely in capitals, and neither excluded nor a relationship
// indicator. Sentence-initial tokens need more evidence: the word must also
// be capitalised somewhere mid-sentence, or never appear in lower case, not
// be followed by a comma and not end in "ly". Adjacent name parts form one
// name; a later single part of an earlier multi-part name is an alias.
func findCharacters(text string, tokens []lexicon.Token, units []chunker.Unit, lex *compiled, limit int) cast {
	initial := sentenceInitial(tokens, units)
	lowered := make(map[string]bool)
	midCaps := make(map[string]bool)
	for i, tok := range tokens {
		word := stripPossessive(tok.Text)
		if !startsUpper(word) {
			lowered[strings.ToLower(word)] = true
		} else if !initial[i] {
			midCaps[word] = true
		}
	}

	part := func(i int) (string, bool) {
		tok := tokens[i]
		word := stripPossessive(tok.Text)
		lower := strings.ToLower(word)
		switch {
		case utf8.RuneCountInString(word) < 2,
			!startsUpper(word),
			allUpper(word),
			lex.exclude.Has(lower),
			lex.indicators.Contains(lower):
			return "", false
		}
		if initial[i] && !midCaps[word] {
			if lowered[lower] || strings.HasSuffix(lower, "ly") || strings.HasPrefix(text[tok.End:], ",") {
				return "", false
			}
		}
		return word, true
	}

	var c cast
	index := make(map[string]int)
	aliases := make(map[string]int)

	for i := 0; i < len(tokens); {
		first, ok := part(i)
		if !ok {
			i++
			continue
		}
		parts := []string{first}
		j := i + 1
		for j < len(tokens) && !isPossessive(tokens[j-1].Text) && onlySpace(text[tokens[j-1].End:tokens[j].Start]) {
			next, ok := part(j)
			if !ok {
				break
			}
			parts = append(parts, next)
			j++
		}

		name := strings.Join(parts, " ")
		m := mention{start: tokens[i].Start, end: tokens[j-1].End, unit: unitOf(units, tokens[i].Start)}
		i = j

		idx, known := index[name]
		if !known && len(parts) == 1 {
			idx, known = aliases[name]
		}
		if !known {
			if len(c.names) >= limit {
				continue
			}
			idx = len(c.names)
			index[name] = idx
			c.names = append(c.names, name)
			c.mentions = append(c.mentions, nil)
			if len(parts) > 1 {
				for _, p := range parts {
					if _, taken := aliases[p]; !taken {
						aliases[p] = idx
					}
				}
			}
		}
		c.mentions[idx] = append(c.mentions[idx], m)
	}
	return c
}

// sentenceInitial marks the first token of every unit.
func sentenceInitial(tokens []lexicon.Token, units []chunker.Unit) map[int]bool {
	initial := make(map[int]bool, len(units))
	t := 0
	for _, u := range units {
		for t < len(tokens) && tokens[t].Start < u.Start {
			t++
		}
		if t < len(tokens) && tokens[t].Start < u.End {
			initial[t] = true
		}
	}
	return initial
}

// unitOf returns the index of the unit containing byte offset pos.
func unitOf(units []chunker.Unit, pos int) int {
	k := sort.Search(len(units), func(k int) bool { return units[k].End > pos })
	if k >= len(units) {
		return len(units) - 1
	}
	return k
}

func stripPossessive(word string) string {
	for _, suffix := range []string{"'s", "’s"} {
		if strings.HasSuffix(word, suffix) {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return word
}

func isPossessive(word string) bool {
	return stripPossessive(word) != word
}

func startsUpper(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func allUpper(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func onlySpace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
