// Package fuzzy scores candidate text against a query. Matching is a
// case-insensitive subsequence test; scoring rewards, in dominance
// order, a contiguous match of the whole query, alignment to word
// boundaries, a short match span, and an early match start.
package fuzzy

import (
	"unicode"
)

// Bonus and penalty weights. bonusExact dominates boundary bonuses,
// which dominate span penalties, which dominate the start penalty, for
// any match text shorter than a few thousand runes.
const (
	bonusExact    = 1 << 16
	bonusBoundary = 1 << 8
	penaltySpan   = 4
	penaltyStart  = 1
)

// Result holds the quality score and the rune-level positions of the
// matched characters in the original text, for highlighting.
type Result struct {
	Score     int
	Positions []int
}

// Match scores text against query. The second return is false when the
// query is not a case-insensitive subsequence of text; such items are
// excluded from filtering entirely. An empty query matches with a zero
// score and no positions.
func Match(text, query string) (Result, bool) {
	if query == "" {
		return Result{}, true
	}
	if text == "" {
		return Result{}, false
	}

	orig := []rune(text)
	tr := foldRunes(orig)
	qr := foldRunes([]rune(query))

	// Contiguous match of the full query beats any scattered match.
	if start, ok := indexRunes(tr, qr); ok {
		positions := make([]int, len(qr))
		score := bonusExact - penaltySpan*len(qr) - penaltyStart*start
		for i := range qr {
			positions[i] = start + i
			if isBoundary(orig, start+i) {
				score += bonusBoundary
			}
		}
		return Result{Score: score, Positions: positions}, true
	}

	positions := subsequence(tr, qr)
	if positions == nil {
		return Result{}, false
	}

	span := positions[len(positions)-1] - positions[0] + 1
	score := -penaltySpan*span - penaltyStart*positions[0]
	for _, p := range positions {
		if isBoundary(orig, p) {
			score += bonusBoundary
		}
	}
	return Result{Score: score, Positions: positions}, true
}

// subsequence finds query inside text as a subsequence and returns the
// matched positions, or nil when there is no match. A forward pass
// establishes the earliest end, then a backward pass pulls the start as
// late as possible, minimizing the span for the earliest viable window.
func subsequence(text, query []rune) []int {
	positions := make([]int, len(query))

	qi := 0
	for ti := 0; ti < len(text) && qi < len(query); ti++ {
		if text[ti] == query[qi] {
			positions[qi] = ti
			qi++
		}
	}
	if qi < len(query) {
		return nil
	}

	// Tighten: walk backward from the matched end, taking the latest
	// occurrence of each query rune that stays in order.
	ti := positions[len(query)-1]
	for qi = len(query) - 1; qi >= 0; qi-- {
		for text[ti] != query[qi] {
			ti--
		}
		positions[qi] = ti
		ti--
	}
	return positions
}

// isBoundary reports whether position p starts a word in the original
// text: start of string, preceded by a non-alphanumeric rune, or a
// lower-to-upper camel-case transition.
func isBoundary(orig []rune, p int) bool {
	if p == 0 {
		return true
	}
	prev := orig[p-1]
	if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(orig[p])
}

// foldRunes lowercases rune by rune, preserving length so positions on
// the folded text index the original for highlighting.
func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexRunes finds needle as a contiguous run inside haystack.
func indexRunes(haystack, needle []rune) (int, bool) {
	if len(needle) > len(haystack) {
		return 0, false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for ; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				break
			}
		}
		if j == len(needle) {
			return i, true
		}
	}
	return 0, false
}
