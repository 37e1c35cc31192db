// Package insight maintains the cross-agent ledger of reported findings
// and the lexical near-duplicate filter that guards it.
package insight

import (
	"strings"
	"unicode"
)

// minTokenLength is the shortest token (exclusive) that participates in
// similarity comparison. Short function words carry no signal.
const minTokenLength = 3

// Similarity scores how close two text snippets are to restating the same
// fact, in [0,1]. Each text is lowercased, stripped of punctuation, split
// on whitespace, and reduced to its set of tokens longer than three
// characters; the score is the Jaccard index of the two sets. Returns 0
// when either normalized set is empty.
//
// This is a cheap lexical heuristic, not semantic similarity: it catches
// the same fact worded slightly differently, and misses paraphrases with
// disjoint vocabulary. That limitation is accepted by design.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// tokenSet normalizes text into its comparison token set.
func tokenSet(text string) map[string]struct{} {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			// Punctuation becomes a separator rather than vanishing, so
			// "year-over-year" splits into comparable tokens.
			return ' '
		}
	}, text)

	set := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		if len(token) > minTokenLength {
			set[token] = struct{}{}
		}
	}
	return set
}
