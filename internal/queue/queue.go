// Package queue projects a device's cards into the new/review study
// queues, spec.md §4.8.
package queue

import (
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// Result is the deck queue projection response.
type Result struct {
	NewCards     []domain.Card
	ReviewCards  []domain.Card
	NewLimit     int
	ReviewLimit  int
	NewRemain    int
	ReviewRemain int
}

// Today computes the calendar date the queue projection uses: the wall
// clock's date, shifted back a day if the current hour is before
// dailyResetHour, per spec.md §4.8.
func Today(now time.Time, dailyResetHour int) time.Time {
	d := now
	if now.Hour() < dailyResetHour {
		d = now.Add(-24 * time.Hour)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// Build truncates newCards/dueCards (already filtered/ordered by the
// caller's store query) to the effective limits and reports remaining
// counts.
func Build(newCards, dueCards []domain.Card, newLimit, reviewLimit int) Result {
	r := Result{NewLimit: newLimit, ReviewLimit: reviewLimit}

	r.NewCards = newCards
	if len(r.NewCards) > newLimit {
		r.NewCards = r.NewCards[:newLimit]
	}
	r.NewRemain = maxInt(0, len(newCards)-len(r.NewCards))

	r.ReviewCards = dueCards
	if len(r.ReviewCards) > reviewLimit {
		r.ReviewCards = r.ReviewCards[:reviewLimit]
	}
	r.ReviewRemain = maxInt(0, len(dueCards)-len(r.ReviewCards))

	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
