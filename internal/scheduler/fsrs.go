package scheduler

import (
	"math"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// DefaultWeights are the pinned FSRS-4.5 weights from spec.md §4.3.
var DefaultWeights = [17]float64{
	0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49, 0.14,
	0.94, 2.18, 0.05, 0.34, 1.26, 0.29, 2.61,
}

// FSRS implements the DSR (Difficulty/Stability/Retrievability) memory
// model, spec.md §4.3. Deliberately hand-rolled rather than wrapping
// go-fsrs: the weight vector and interval formulas below must match
// spec.md exactly, and that determinism is one of the testable properties
// (spec.md §8) this package is verified against.
type FSRS struct {
	Weights          [17]float64
	RequestRetention float64
	MaximumInterval  float64
}

// NewFSRS returns an FSRS-4.5 scheduler with the spec's pinned defaults.
func NewFSRS() *FSRS {
	return &FSRS{
		Weights:          DefaultWeights,
		RequestRetention: 0.9,
		MaximumInterval:  36500,
	}
}

func (f *FSRS) Name() string { return "fsrs" }

func (f *FSRS) InitialState(cardID int64) domain.CardState {
	return domain.NewCardState(cardID)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// difficultyFloor computes D0(rating): the difficulty a card would start
// at if this rating were its very first grading.
func (f *FSRS) difficultyFloor(rating domain.Rating) float64 {
	w := f.Weights
	return clamp(w[4]-w[5]*(float64(rating)-3), 1, 10)
}

// intervalFromStability converts a stability value into a due interval,
// spec.md §4.3 "Interval from stability".
func (f *FSRS) intervalFromStability(s float64, rating domain.Rating) float64 {
	if rating == domain.Again {
		minutes := clamp(s*60, 10, 1440)
		return minutes / 1440
	}
	return clamp(9*s*(1/f.RequestRetention-1), 1, f.MaximumInterval)
}

// Schedule implements spec.md §4.3's first-review and subsequent-review
// formulas.
func (f *FSRS) Schedule(state domain.CardState, rating domain.Rating, now time.Time) (domain.CardState, time.Time) {
	rating = CoerceRating(rating)
	w := f.Weights
	next := state

	firstReview := state.ReviewsCount == 0 || state.Stability == nil || state.Difficulty == nil

	var newStability, newDifficulty float64

	if firstReview {
		newStability = math.Max(w[int(rating)-1], 0.1)
		newDifficulty = clamp(w[4]-w[5]*(float64(rating)-3), 1, 10)

		if rating == domain.Again {
			next.Status = domain.StatusLearning
		} else {
			next.Status = domain.StatusReview
		}
	} else {
		s := *state.Stability
		d := *state.Difficulty

		prevInterval := state.IntervalDays
		var elapsed float64
		if state.DueDate != nil {
			lastReviewedAt := state.DueDate.Add(-time.Duration(prevInterval*86400) * time.Second)
			elapsed = now.Sub(lastReviewedAt).Hours() / 24
			if elapsed < 0 {
				elapsed = 0
			}
		} else {
			elapsed = prevInterval
		}

		r := 1 / (1 + elapsed/(9*s))

		dPrime := w[7]*f.difficultyFloor(rating) + (1-w[7])*d
		newDifficulty = clamp(dPrime-w[6]*(float64(rating)-3), 1, 10)

		if rating == domain.Again {
			newStability = clamp(
				w[11]*math.Pow(d, -w[12])*(math.Pow(s+1, w[13])-1)*math.Exp(w[14]*(1-r)),
				0.1, s,
			)
			next.Lapses++
			next.Status = domain.StatusRelearning
		} else {
			growth := math.Exp(w[8])*math.Max(11-d, 0.1)*math.Pow(s, -w[9])*(math.Exp(w[10]*(1-r))-1) + 1
			modifier := 1.0
			switch rating {
			case domain.Hard:
				modifier = w[15]
			case domain.Easy:
				modifier = w[16]
			}
			newStability = clamp(s*growth*modifier, 0.1, f.MaximumInterval)
			next.Status = domain.StatusReview
		}
	}

	next.Stability = &newStability
	next.Difficulty = &newDifficulty
	next.IntervalDays = f.intervalFromStability(newStability, rating)
	next.ReviewsCount++

	due := now.Add(time.Duration(math.Floor(next.IntervalDays*86400)) * time.Second)
	next.DueDate = &due
	return next, due
}
