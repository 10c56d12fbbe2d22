// Package matching grades typed answers against a card's correct answer:
// normalization, Levenshtein distance, fuzzy similarity, and a word-level
// diff for showing the user where they went wrong. See spec.md §4.4.
package matching

import (
	"strings"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// Normalize trims both ends and collapses every internal run of
// whitespace to a single ASCII space.
func Normalize(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Result is the outcome of comparing a typed answer against the correct
// one.
type Result struct {
	IsCorrect  bool
	Similarity float64
	Diff       []Segment
}

// Compare grades typed against correct under the given mode and, for
// fuzzy mode, threshold.
func Compare(typed, correct string, mode domain.MatchMode, threshold float64) Result {
	normTyped := Normalize(typed)
	normCorrect := Normalize(correct)

	var result Result
	switch mode {
	case domain.MatchExact:
		result.IsCorrect = normTyped == normCorrect
		if result.IsCorrect {
			result.Similarity = 1
		}
	case domain.MatchCaseInsensitive:
		result.IsCorrect = strings.EqualFold(normTyped, normCorrect)
		if result.IsCorrect {
			result.Similarity = 1
		}
	default: // MatchFuzzy
		result.Similarity = Similarity(normTyped, normCorrect)
		result.IsCorrect = result.Similarity >= threshold
	}

	result.Diff = WordDiff(normTyped, normCorrect)
	return result
}

// Similarity returns 1 − Levenshtein(lower(a), lower(b))/max(|a|,|b|),
// with the empty/empty case defined as 1.
func Similarity(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)

	maxLen := len([]rune(la))
	if bl := len([]rune(lb)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1
	}

	dist := Levenshtein(la, lb)
	return 1 - float64(dist)/float64(maxLen)
}

// Levenshtein computes classic edit distance (insertion/deletion/
// substitution, cost 1 each) in O(|a|·|b|) time and O(min(|a|,|b|)) space.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	// Keep the shorter string as the one whose length bounds the row
	// width, so the working row is O(min(|a|,|b|)).
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	curr := make([]int, len(ra)+1)

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			deletion := prev[i] + 1
			insertion := curr[i-1] + 1
			substitution := prev[i-1] + cost
			curr[i] = min3(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
