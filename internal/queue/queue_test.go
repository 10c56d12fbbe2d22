package queue

import (
	"testing"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

func TestTodayBeforeResetHourRollsBack(t *testing.T) {
	now := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC) // 2am, reset hour 4
	got := Today(now, 4)
	want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Today() = %v, want %v", got, want)
	}
}

func TestTodayAfterResetHourStaysSameDay(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	got := Today(now, 4)
	want := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Today() = %v, want %v", got, want)
	}
}

func cards(n int) []domain.Card {
	out := make([]domain.Card, n)
	for i := range out {
		out[i] = domain.Card{ID: int64(i + 1)}
	}
	return out
}

func TestBuildTruncatesAndReportsRemaining(t *testing.T) {
	r := Build(cards(5), cards(3), 2, 2)
	if len(r.NewCards) != 2 || r.NewRemain != 3 {
		t.Fatalf("new queue mismatch: %+v", r)
	}
	if len(r.ReviewCards) != 2 || r.ReviewRemain != 1 {
		t.Fatalf("review queue mismatch: %+v", r)
	}
}

func TestBuildUnderLimitHasZeroRemain(t *testing.T) {
	r := Build(cards(1), cards(1), 20, 200)
	if r.NewRemain != 0 || r.ReviewRemain != 0 {
		t.Fatalf("expected zero remain, got %+v", r)
	}
}
