package parser

import (
	"errors"
	"testing"
)

func TestParseSingleCardNoID(t *testing.T) {
	cards, err := Parse("Q: What is Rust?\nA: A systems programming language.\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	c := cards[0]
	if c.ID != nil {
		t.Errorf("expected nil ID, got %v", *c.ID)
	}
	if c.Question != "What is Rust?" || c.Answer != "A systems programming language." {
		t.Errorf("unexpected card content: %+v", c)
	}
	if c.StartingLine != 1 {
		t.Errorf("expected starting line 1, got %d", c.StartingLine)
	}
}

func TestParseWithID(t *testing.T) {
	cards, err := Parse("ID: 7\nQ: What is Go?\nA: A language from Google.\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].ID == nil || *cards[0].ID != 7 {
		t.Fatalf("expected a single card with ID 7, got %+v", cards)
	}
	if cards[0].StartingLine != 1 {
		t.Errorf("expected starting line 1 (the ID: line), got %d", cards[0].StartingLine)
	}
}

func TestParseMultipleCards(t *testing.T) {
	content := "ID: 1\nQ: Q1\nA: A1\n\nID: 2\nQ: Q2\nA: A2\n"
	cards, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if *cards[0].ID != 1 || *cards[1].ID != 2 {
		t.Errorf("unexpected ids: %v, %v", *cards[0].ID, *cards[1].ID)
	}
	if cards[1].StartingLine != 5 {
		t.Errorf("expected second card to start at line 5, got %d", cards[1].StartingLine)
	}
}

func TestParseMixedIDAndNoID(t *testing.T) {
	content := "Q: No ID\nA: Answer\n\nID: 5\nQ: Has ID\nA: Answer2\n"
	cards, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].ID != nil {
		t.Errorf("expected first card to have nil ID, got %v", *cards[0].ID)
	}
	if cards[1].ID == nil || *cards[1].ID != 5 {
		t.Fatalf("expected second card id 5, got %+v", cards[1].ID)
	}
}

func TestParseEmptyIDEquivalentToAbsent(t *testing.T) {
	cards, err := Parse("ID: \nQ: Q\nA: A\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != nil {
		t.Fatalf("expected single card with nil ID, got %+v", cards)
	}
}

func TestParseContinuationLines(t *testing.T) {
	content := "Q: Explain borrowing\nA: Borrowing allows references without ownership.\n   Multiple lines are supported.\n"
	cards, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	want := "Borrowing allows references without ownership.\n   Multiple lines are supported."
	if cards[0].Answer != want {
		t.Errorf("answer = %q, want %q", cards[0].Answer, want)
	}
}

func TestParseIncompleteBlockSilentlyDropped(t *testing.T) {
	content := "Q: Orphan question with no answer\n\nQ: Q2\nA: A2\n"
	cards, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected the incomplete block to be dropped, leaving 1 card, got %d", len(cards))
	}
	if cards[0].Question != "Q2" {
		t.Errorf("expected surviving card to be Q2, got %q", cards[0].Question)
	}
}

func TestParseAnswerWithNoQuestionDropped(t *testing.T) {
	cards, err := Parse("A: Orphan answer\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
}

func TestParseInvalidID(t *testing.T) {
	_, err := Parse("ID: not-a-number\nQ: Q\nA: A\n")
	var invalidErr *InvalidIDError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidIDError, got %v", err)
	}
	if invalidErr.Line != 1 || invalidErr.Value != "not-a-number" {
		t.Errorf("unexpected error detail: %+v", invalidErr)
	}
}

func TestParseDuplicateID(t *testing.T) {
	content := "ID: 1\nQ: Q1\nA: A1\n\nID: 1\nQ: Q2\nA: A2\n"
	_, err := Parse(content)
	var dupErr *DuplicateIDError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if dupErr.ID != 1 || dupErr.Line != 5 {
		t.Errorf("expected duplicate at id=1 line=5, got %+v", dupErr)
	}
}

func TestParseEmptyInput(t *testing.T) {
	cards, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}

	cards, err = Parse("   \n\n  \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no cards for whitespace-only input, got %d", len(cards))
	}
}

func TestInjectIDsPreservesTrailingNewline(t *testing.T) {
	content := "Q: A?\nA: B.\n"
	out := InjectIDs(content, map[int]int64{1: 42})
	want := "ID: 42\nQ: A?\nA: B.\n"
	if out != want {
		t.Errorf("InjectIDs = %q, want %q", out, want)
	}
}

func TestInjectIDsNoTrailingNewline(t *testing.T) {
	content := "Q: New card\nA: Answer"
	out := InjectIDs(content, map[int]int64{1: 42})
	want := "ID: 42\nQ: New card\nA: Answer"
	if out != want {
		t.Errorf("InjectIDs = %q, want %q", out, want)
	}
}

func TestInjectIDsEmptyAssignmentIsIdentity(t *testing.T) {
	for _, content := range []string{
		"Q: A?\nA: B.\n",
		"Q: A?\nA: B.",
		"",
	} {
		out := InjectIDs(content, nil)
		if out != content {
			t.Errorf("InjectIDs(%q, nil) = %q, want identity", content, out)
		}
	}
}

func TestInjectIDsMultipleCards(t *testing.T) {
	content := "Q: Q1\nA: A1\n\nQ: Q2\nA: A2\n"
	out := InjectIDs(content, map[int]int64{1: 1, 4: 2})
	want := "ID: 1\nQ: Q1\nA: A1\n\nID: 2\nQ: Q2\nA: A2\n"
	if out != want {
		t.Errorf("InjectIDs = %q, want %q", out, want)
	}
}

func TestParseInjectParseRoundTrip(t *testing.T) {
	content := "Q: Q1\nA: A1\n\nQ: Q2\nA: A2\n"
	parsed, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assignments := make(map[int]int64)
	var nextID int64 = 100
	for _, c := range parsed {
		if c.ID == nil {
			assignments[c.StartingLine] = nextID
			nextID++
		}
	}

	injected := InjectIDs(content, assignments)
	reparsed, err := Parse(injected)
	if err != nil {
		t.Fatalf("unexpected error reparsing: %v", err)
	}
	if len(reparsed) != len(parsed) {
		t.Fatalf("round trip changed card count: %d vs %d", len(reparsed), len(parsed))
	}
	for i := range parsed {
		if reparsed[i].Question != parsed[i].Question || reparsed[i].Answer != parsed[i].Answer {
			t.Errorf("round trip changed card %d content", i)
		}
		if reparsed[i].ID == nil {
			t.Errorf("round trip card %d should now have an assigned ID", i)
		}
	}
}
