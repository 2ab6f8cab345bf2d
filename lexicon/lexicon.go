// Package lexicon holds the keyword machinery shared by the rule-based
// facet engines: a word tokenizer that keeps byte offsets, a phrase table
// keyed by a closed taxonomy, and the normalisation helpers every engine
// applies to raw hit counts.
package lexicon

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a word-like span of the analysed text.
type Token struct {
	Text  string `json:"text"`
	Lower string `json:"-"`
	Start int    `json:"start"` // byte offset, inclusive
	End   int    `json:"end"`   // byte offset, exclusive
}

// Tokenize splits text into words. Letters and digits form words;
// apostrophes and hyphens are kept when they sit between a word and a
// following letter ("don't", "well-known"). Offsets index into text.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		tokens = append(tokens, Token{
			Text:  word,
			Lower: strings.ToLower(word),
			Start: start,
			End:   end,
		})
		start = -1
	}

	for i, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case start >= 0 && isJoiner(r) && letterAt(text, i+utf8.RuneLen(r)):
			// joiner inside a word, keep scanning
		default:
			flush(i)
		}
	}
	flush(len(text))
	return tokens
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

func letterAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsLetter(r)
}

// Hit is one occurrence of a lexicon term in a token stream.
type Hit[K ~string] struct {
	Key   K      `json:"key"`
	Term  string `json:"term"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Token int    `json:"token"` // index of the first matched token
}

type entry[K ~string] struct {
	key   K
	term  string
	words []string
}

// Table maps every key of a closed taxonomy to a list of terms. Terms may be
// single words or multi-word phrases; matching is case-insensitive and on
// whole tokens only. A Table is immutable once built.
type Table[K ~string] struct {
	order []K
	terms map[K][]string
	index map[string][]entry[K]
}

// NewTable builds a table for the keys in order. Terms listed under keys
// that are not part of order are ignored.
func NewTable[K ~string](order []K, terms map[K][]string) *Table[K] {
	t := &Table[K]{
		order: slices.Clone(order),
		terms: make(map[K][]string, len(order)),
		index: make(map[string][]entry[K]),
	}
	for _, k := range order {
		for _, term := range terms[k] {
			words := termWords(term)
			if len(words) == 0 {
				continue
			}
			t.terms[k] = append(t.terms[k], term)
			t.index[words[0]] = append(t.index[words[0]], entry[K]{key: k, term: term, words: words})
		}
	}
	return t
}

func termWords(term string) []string {
	toks := Tokenize(term)
	words := make([]string, len(toks))
	for i, tok := range toks {
		words[i] = tok.Lower
	}
	return words
}

// Order returns the canonical key order of the table.
func (t *Table[K]) Order() []K {
	return slices.Clone(t.order)
}

// Terms returns the terms registered under k.
func (t *Table[K]) Terms(k K) []string {
	return slices.Clone(t.terms[k])
}

// Contains reports whether word (any case) starts a term of any key.
func (t *Table[K]) Contains(word string) bool {
	_, ok := t.index[strings.ToLower(word)]
	return ok
}

// Scan returns every occurrence of every term in tokens, ordered by
// position and then by key order.
func (t *Table[K]) Scan(tokens []Token) []Hit[K] {
	var hits []Hit[K]
	for i, tok := range tokens {
		for _, e := range t.index[tok.Lower] {
			if !matchAt(tokens, i, e.words) {
				continue
			}
			last := tokens[i+len(e.words)-1]
			hits = append(hits, Hit[K]{
				Key:   e.key,
				Term:  e.term,
				Start: tok.Start,
				End:   last.End,
				Token: i,
			})
		}
	}
	return hits
}

// Count tallies hits per key. Every key of the taxonomy is present.
func (t *Table[K]) Count(tokens []Token) map[K]int {
	counts := make(map[K]int, len(t.order))
	for _, k := range t.order {
		counts[k] = 0
	}
	for _, h := range t.Scan(tokens) {
		counts[h.Key]++
	}
	return counts
}

// With returns a copy of the table where the term lists of the given keys
// are replaced. Unknown keys are rejected so a typo in an override file
// cannot silently open the taxonomy.
func (t *Table[K]) With(replace map[string][]string) (*Table[K], error) {
	terms := make(map[K][]string, len(t.order))
	for k, v := range t.terms {
		terms[k] = v
	}
	for name, list := range replace {
		k := K(name)
		if !slices.Contains(t.order, k) {
			return nil, fmt.Errorf("unknown lexicon key %q", name)
		}
		terms[k] = list
	}
	return NewTable(t.order, terms), nil
}

func matchAt(tokens []Token, i int, words []string) bool {
	if i+len(words) > len(tokens) {
		return false
	}
	for j, w := range words {
		if tokens[i+j].Lower != w {
			return false
		}
	}
	return true
}

// WordSet is a case-insensitive set of single words.
type WordSet map[string]struct{}

// NewWordSet builds a set from words.
func NewWordSet(words ...string) WordSet {
	s := make(WordSet, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Has reports whether word is in the set.
func (s WordSet) Has(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// CountIn counts the tokens that belong to the set.
func (s WordSet) CountIn(tokens []Token) int {
	n := 0
	for _, tok := range tokens {
		if _, ok := s[tok.Lower]; ok {
			n++
		}
	}
	return n
}

// Article returns the indefinite article for a lowercase label.
func Article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}
