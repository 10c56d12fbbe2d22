package scheduler

import (
	"testing"
	"time"

	"github.com/justinlyon12/flashsync/internal/domain"
)

func TestSM2LearningPhase(t *testing.T) {
	s := NewSM2()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := s.InitialState(1)

	next, due := s.Schedule(state, domain.Good, now)
	if next.Status != domain.StatusReview {
		t.Errorf("expected status review, got %v", next.Status)
	}
	if next.IntervalDays != s.GraduatingInterval {
		t.Errorf("expected interval %v, got %v", s.GraduatingInterval, next.IntervalDays)
	}
	if !due.Equal(now.AddDate(0, 0, int(s.GraduatingInterval))) {
		t.Errorf("unexpected due date: %v", due)
	}
	if next.ReviewsCount != 1 {
		t.Errorf("expected reviews_count 1, got %d", next.ReviewsCount)
	}
}

func TestSM2EasyFromNew(t *testing.T) {
	s := NewSM2()
	now := time.Now()
	state := s.InitialState(1)
	next, _ := s.Schedule(state, domain.Easy, now)
	if next.Status != domain.StatusReview || next.IntervalDays != s.EasyInterval {
		t.Errorf("unexpected result: %+v", next)
	}
}

func TestSM2AgainStaysLearning(t *testing.T) {
	s := NewSM2()
	state := s.InitialState(1)
	next, _ := s.Schedule(state, domain.Again, time.Now())
	if next.Status != domain.StatusLearning || next.IntervalDays != 0 {
		t.Errorf("unexpected result: %+v", next)
	}
}

// Concrete scenario 3 from spec.md §8: SM-2 lapse.
func TestSM2LapseScenario(t *testing.T) {
	s := NewSM2()
	state := domain.CardState{
		Status:       domain.StatusReview,
		IntervalDays: 10,
		EaseFactor:   2.5,
		Lapses:       0,
		ReviewsCount: 5,
	}
	next, _ := s.Schedule(state, domain.Again, time.Now())

	if next.Status != domain.StatusRelearning {
		t.Errorf("expected relearning, got %v", next.Status)
	}
	if next.IntervalDays != 1 {
		t.Errorf("expected interval 1, got %v", next.IntervalDays)
	}
	if next.EaseFactor != 2.3 {
		t.Errorf("expected ease 2.3, got %v", next.EaseFactor)
	}
	if next.Lapses != 1 {
		t.Errorf("expected lapses 1, got %d", next.Lapses)
	}
	if next.ReviewsCount != 6 {
		t.Errorf("expected reviews_count 6, got %d", next.ReviewsCount)
	}
}

func TestSM2EaseNeverBelowMinimum(t *testing.T) {
	s := NewSM2()
	state := domain.CardState{
		Status:       domain.StatusReview,
		IntervalDays: 5,
		EaseFactor:   1.35,
		ReviewsCount: 1,
	}
	for i := 0; i < 10; i++ {
		state, _ = s.Schedule(state, domain.Again, time.Now())
		if state.EaseFactor < s.MinimumEase {
			t.Fatalf("ease fell below minimum: %v", state.EaseFactor)
		}
	}
}

func TestSM2HardMultiplier(t *testing.T) {
	s := NewSM2()
	state := domain.CardState{
		Status:       domain.StatusReview,
		IntervalDays: 10,
		EaseFactor:   2.5,
		ReviewsCount: 3,
	}
	next, _ := s.Schedule(state, domain.Hard, time.Now())
	if next.IntervalDays != 12 {
		t.Errorf("expected interval 12 (10*1.2), got %v", next.IntervalDays)
	}
}

func TestSM2NextDueNeverBeforeNow(t *testing.T) {
	s := NewSM2()
	now := time.Now()
	state := s.InitialState(1)
	for _, r := range []domain.Rating{domain.Again, domain.Hard, domain.Good, domain.Easy} {
		_, due := s.Schedule(state, r, now)
		if due.Before(now) {
			t.Errorf("rating %v produced due date before now", r)
		}
	}
}
