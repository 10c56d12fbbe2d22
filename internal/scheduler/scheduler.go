// Package scheduler implements the two spaced-repetition algorithms the
// rest of the system dispatches by name: classical SM-2 and FSRS-4.5. Both
// are pure functions of (card state, rating, clock) — no I/O, no
// randomness, fully deterministic.
package scheduler

import (
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// Algorithm is the capability set every scheduler implements, named in
// spec.md §9 "Scheduler dispatch". Callers pick one by name from effective
// settings.
type Algorithm interface {
	// Name is the string stored on review events and matched against
	// GlobalSettings.Algorithm / DeckSettings.Algorithm.
	Name() string

	// InitialState is the per-device state a freshly uploaded card starts
	// in, before any review.
	InitialState(cardID int64) domain.CardState

	// Schedule computes the next card state and due instant from a
	// rating. now is the instant the review was graded at.
	Schedule(state domain.CardState, rating domain.Rating, now time.Time) (domain.CardState, time.Time)
}

// ErrUnknownAlgorithm indicates an algorithm name that doesn't match any
// registered scheduler. Per spec.md §7, review scheduling never fails on a
// bad rating, but an unrecognized algorithm name IS a BadRequest.
type ErrUnknownAlgorithm struct {
	Name string
}

func (e *ErrUnknownAlgorithm) Error() string {
	return "scheduler: unknown algorithm " + e.Name
}

// CoerceRating maps any rating outside [Again,Easy] to Good, per spec.md
// §7: review scheduling never fails — an unrecognized rating is coerced
// to Good rather than rejected or indexed into a weight table.
func CoerceRating(rating domain.Rating) domain.Rating {
	if rating < domain.Again || rating > domain.Easy {
		return domain.Good
	}
	return rating
}

// ByName dispatches to SM2 or FSRS by the string stored in effective
// settings, the way the teacher's Scheduler wrapper picked an engine at
// construction time.
func ByName(name string) (Algorithm, error) {
	switch name {
	case "sm2":
		return NewSM2(), nil
	case "fsrs":
		return NewFSRS(), nil
	default:
		return nil, &ErrUnknownAlgorithm{Name: name}
	}
}
