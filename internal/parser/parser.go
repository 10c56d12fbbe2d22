// Package parser reads the line-oriented flashcard markdown format and
// injects server-assigned IDs back into the original text without
// disturbing any other byte. See spec.md §4.1.
//
//	ID: 1
//	Q: What is Rust?
//	A: A systems programming language.
//
//	Q: Explain borrowing
//	A: Borrowing allows references without ownership.
//	   Multiple lines are supported.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Card is one parsed flashcard block.
type Card struct {
	ID           *int64
	Question     string
	Answer       string
	StartingLine int // 1-indexed
}

// InvalidIDError is returned when an ID: line's body is non-empty and does
// not parse as a signed 64-bit integer.
type InvalidIDError struct {
	Line  int
	Value string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("parser: invalid ID %q at line %d", e.Value, e.Line)
}

// DuplicateIDError is returned when a non-null ID repeats within one file.
// Line is where the second occurrence's block starts.
type DuplicateIDError struct {
	ID   int64
	Line int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("parser: duplicate ID %d at line %d", e.ID, e.Line)
}

type builder struct {
	id        *int64
	sawQ      bool
	sawA      bool
	question  string
	answer    string
	startLine int
}

type activeField int

const (
	fieldNone activeField = iota
	fieldQuestion
	fieldAnswer
)

// Parse reads UTF-8 markdown text and returns the ordered cards it
// contains. A block with Q but no A (or A but no Q) is silently dropped.
// Empty input returns an empty, non-nil-error result.
func Parse(content string) ([]Card, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var (
		cards   []Card
		seen    = make(map[int64]bool)
		cur     *builder
		field   = fieldNone
		buffer  []string
		lineNum int
	)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		content := strings.Join(buffer, "\n")
		buffer = nil
		if cur == nil {
			field = fieldNone
			return
		}
		switch field {
		case fieldQuestion:
			cur.question = content
		case fieldAnswer:
			cur.answer = content
		}
		field = fieldNone
	}

	finalize := func() error {
		flush()
		if cur == nil {
			return nil
		}
		b := cur
		cur = nil
		q := strings.TrimSpace(b.question)
		a := strings.TrimSpace(b.answer)
		if q == "" || a == "" {
			return nil
		}
		if b.id != nil {
			if seen[*b.id] {
				return &DuplicateIDError{ID: *b.id, Line: b.startLine}
			}
			seen[*b.id] = true
		}
		cards = append(cards, Card{ID: b.id, Question: q, Answer: a, StartingLine: b.startLine})
		return nil
	}

	for _, raw := range strings.Split(content, "\n") {
		lineNum++
		trimmed := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(trimmed, "ID:"):
			flush()
			if cur != nil && cur.sawQ {
				if err := finalize(); err != nil {
					return nil, err
				}
			}
			if cur == nil {
				cur = &builder{startLine: lineNum}
			}
			body := strings.TrimSpace(strings.TrimPrefix(trimmed, "ID:"))
			if body == "" {
				cur.id = nil
			} else {
				id, err := strconv.ParseInt(body, 10, 64)
				if err != nil {
					return nil, &InvalidIDError{Line: lineNum, Value: body}
				}
				cur.id = &id
			}

		case strings.HasPrefix(trimmed, "Q:"):
			flush()
			if cur != nil && cur.sawQ {
				if err := finalize(); err != nil {
					return nil, err
				}
			}
			if cur == nil {
				cur = &builder{startLine: lineNum}
			}
			cur.sawQ = true
			field = fieldQuestion
			buffer = append(buffer, strings.TrimSpace(strings.TrimPrefix(trimmed, "Q:")))

		case strings.HasPrefix(trimmed, "A:"):
			flush()
			if cur == nil {
				cur = &builder{startLine: lineNum}
			}
			cur.sawA = true
			field = fieldAnswer
			buffer = append(buffer, strings.TrimSpace(strings.TrimPrefix(trimmed, "A:")))

		default:
			buffer = append(buffer, raw)
		}
	}

	if err := finalize(); err != nil {
		return nil, err
	}

	return cards, nil
}

// InjectIDs returns content with "ID: <id>\n" inserted immediately before
// each original 1-indexed line number in assignments. Every other byte is
// preserved exactly, including whether the file ends with a trailing
// newline. InjectIDs(c, nil) == c.
func InjectIDs(content string, assignments map[int]int64) string {
	if len(assignments) == 0 {
		return content
	}

	trailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}

	var out []string
	for i, line := range lines {
		lineNum := i + 1
		if id, ok := assignments[lineNum]; ok {
			out = append(out, "ID: "+strconv.FormatInt(id, 10))
		}
		out = append(out, line)
	}

	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	return result
}
