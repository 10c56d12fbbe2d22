package scheduler

import (
	"math"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

// SM2 is the classical ease-factor algorithm, spec.md §4.2.
type SM2 struct {
	InitialEase        float64
	MinimumEase        float64
	EasyBonus          float64
	HardMultiplier     float64
	GraduatingInterval float64
	EasyInterval       float64
}

// NewSM2 returns an SM2 scheduler with the spec's pinned parameters.
func NewSM2() *SM2 {
	return &SM2{
		InitialEase:        2.5,
		MinimumEase:        1.3,
		EasyBonus:          1.3,
		HardMultiplier:     1.2,
		GraduatingInterval: 1,
		EasyInterval:       4,
	}
}

func (s *SM2) Name() string { return "sm2" }

func (s *SM2) InitialState(cardID int64) domain.CardState {
	state := domain.NewCardState(cardID)
	state.EaseFactor = s.InitialEase
	return state
}

// Schedule implements spec.md §4.2's learning/new and review/relearning
// tables.
func (s *SM2) Schedule(state domain.CardState, rating domain.Rating, now time.Time) (domain.CardState, time.Time) {
	rating = CoerceRating(rating)
	next := state
	prevInterval := state.IntervalDays

	switch state.Status {
	case domain.StatusNew, domain.StatusLearning:
		switch rating {
		case domain.Again, domain.Hard:
			next.Status = domain.StatusLearning
			next.IntervalDays = 0
		case domain.Easy:
			next.Status = domain.StatusReview
			next.IntervalDays = s.EasyInterval
		default: // Good (CoerceRating above already folds anything else into it)
			next.Status = domain.StatusReview
			next.IntervalDays = s.GraduatingInterval
		}

	default: // StatusReview, StatusRelearning
		switch rating {
		case domain.Again:
			next.Status = domain.StatusRelearning
			next.IntervalDays = 1
			next.EaseFactor = math.Max(state.EaseFactor-0.2, s.MinimumEase)
			next.Lapses++
		case domain.Hard:
			next.Status = domain.StatusReview
			next.IntervalDays = math.Max(prevInterval*s.HardMultiplier, 1)
			next.EaseFactor = math.Max(state.EaseFactor-0.15, s.MinimumEase)
		case domain.Easy:
			next.Status = domain.StatusReview
			next.IntervalDays = math.Max(prevInterval*state.EaseFactor*s.EasyBonus, 1)
			next.EaseFactor = math.Max(state.EaseFactor+0.15, s.MinimumEase)
		default: // Good (CoerceRating above already folds anything else into it)
			next.Status = domain.StatusReview
			next.IntervalDays = math.Max(prevInterval*state.EaseFactor, 1)
		}
	}

	next.ReviewsCount++
	due := now.AddDate(0, 0, int(math.Ceil(next.IntervalDays)))
	next.DueDate = &due
	return next, due
}
