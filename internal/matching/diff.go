package matching

import "strings"

// Tag classifies one segment of a word diff.
type Tag int

const (
	Same Tag = iota
	Added
	Removed
)

func (t Tag) String() string {
	switch t {
	case Same:
		return "same"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Segment is one run of words sharing a tag, in display order.
type Segment struct {
	Tag  Tag
	Text string
}

const lookahead = 3

// WordDiff reconstructs a side-by-side visual of a typed answer against
// the correct one, spec.md §4.4. typed and correct should already be
// normalized (Normalize); WordDiff itself only lowercases for the
// equality check, preserving original casing in the emitted segments.
func WordDiff(typed, correct string) []Segment {
	typedWords := strings.Fields(typed)
	correctWords := strings.Fields(correct)

	var segments []Segment
	emit := func(tag Tag, words []string) {
		if len(words) == 0 {
			return
		}
		text := strings.Join(words, " ")
		if n := len(segments); n > 0 && segments[n-1].Tag == tag {
			segments[n-1].Text += " " + text
			return
		}
		segments = append(segments, Segment{Tag: tag, Text: text})
	}

	i, j := 0, 0
	for i < len(typedWords) && j < len(correctWords) {
		if strings.EqualFold(typedWords[i], correctWords[j]) {
			emit(Same, typedWords[i:i+1])
			i++
			j++
			continue
		}

		if k := findAhead(correctWords, j, typedWords[i]); k >= 0 {
			emit(Added, correctWords[j:k])
			j = k
			continue
		}

		if k := findAhead(typedWords, i, correctWords[j]); k >= 0 {
			emit(Removed, typedWords[i:k])
			i = k
			continue
		}

		emit(Removed, typedWords[i:i+1])
		emit(Added, correctWords[j:j+1])
		i++
		j++
	}

	if i < len(typedWords) {
		emit(Removed, typedWords[i:])
	}
	if j < len(correctWords) {
		emit(Added, correctWords[j:])
	}

	return segments
}

// findAhead scans words[from..from+lookahead] for a case-insensitive match
// of target, returning its index or -1.
func findAhead(words []string, from int, target string) int {
	limit := from + lookahead
	if limit > len(words) {
		limit = len(words)
	}
	for k := from; k < limit; k++ {
		if strings.EqualFold(words[k], target) {
			return k
		}
	}
	return -1
}
