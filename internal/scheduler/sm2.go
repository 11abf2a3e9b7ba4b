// Package scheduler computes spaced-repetition schedules for learning items.
//
// Two SM-2 variants live side by side. Question reviews are graded as a plain
// correct/incorrect outcome and use a capped ease update with a geometric
// interval ladder. Flashcards are graded on the 0-5 recall scale and use the
// classic SM-2 ease delta with a multiplicative interval. The variants produce
// different trajectories for the same semantic outcome and are intentionally
// not merged.
package scheduler

import (
	"math"
	"time"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/clock"
)

const (
	DefaultEaseFactor   = 2.5
	MinEaseFactor       = 1.3
	MaxBinaryEaseFactor = 2.5
	MaxIntervalDays     = 180

	MinQuality     = 0
	MaxQuality     = 5
	PassingQuality = 3
)

// State is the scheduling state of a single learning item.
type State struct {
	EaseFactor           float64
	ConsecutiveSuccesses int
	IntervalDays         int
}

// NewState returns the state of an item that has never been graded.
func NewState() State {
	return State{
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 1,
	}
}

// Result is the state after a grading event plus the next due date.
type Result struct {
	State
	DueDate time.Time
	Success bool
}

// Schedule applies grade to current and returns the next state.
// today is the caller's local date; its time of day is ignored.
func Schedule(current State, grade Grade, today time.Time) (Result, error) {
	if err := grade.Validate(); err != nil {
		return Result{}, err
	}
	current = normalize(current)

	var next State
	switch grade.Mode() {
	case ModeGraded:
		next = scheduleGraded(current, grade.Quality())
	default:
		next = scheduleBinary(current, grade.correct)
	}

	return Result{
		State:   next,
		DueDate: clock.AddDays(today, next.IntervalDays),
		Success: grade.Success(),
	}, nil
}

// scheduleBinary is the question-review variant.
func scheduleBinary(current State, correct bool) State {
	if !correct {
		return failed(current)
	}

	ease := math.Min(current.EaseFactor+0.1, MaxBinaryEaseFactor)
	streak := current.ConsecutiveSuccesses + 1

	var interval int
	switch streak {
	case 1:
		interval = 1
	case 2:
		interval = 3
	default:
		interval = int(math.Round(math.Pow(ease, float64(streak-1)) * 3))
	}

	return State{
		EaseFactor:           ease,
		ConsecutiveSuccesses: streak,
		IntervalDays:         capInterval(interval),
	}
}

// scheduleGraded is the flashcard variant.
func scheduleGraded(current State, quality int) State {
	if quality < PassingQuality {
		return failed(current)
	}

	q := float64(MaxQuality - quality)
	ease := math.Max(MinEaseFactor, current.EaseFactor+0.1-q*(0.08+q*0.02))
	streak := current.ConsecutiveSuccesses + 1

	var interval int
	switch streak {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = int(math.Round(float64(current.IntervalDays) * ease))
	}

	return State{
		EaseFactor:           ease,
		ConsecutiveSuccesses: streak,
		IntervalDays:         capInterval(interval),
	}
}

// failed is shared by both variants: ease drops by 0.2, streak and interval reset.
func failed(current State) State {
	return State{
		EaseFactor:           math.Max(current.EaseFactor-0.2, MinEaseFactor),
		ConsecutiveSuccesses: 0,
		IntervalDays:         1,
	}
}

func capInterval(days int) int {
	if days < 1 {
		return 1
	}
	if days > MaxIntervalDays {
		return MaxIntervalDays
	}
	return days
}

func normalize(s State) State {
	if s.EaseFactor == 0 {
		s.EaseFactor = DefaultEaseFactor
	}
	if s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	if s.ConsecutiveSuccesses < 0 {
		s.ConsecutiveSuccesses = 0
	}
	s.IntervalDays = capInterval(s.IntervalDays)
	return s
}

// ValidateQuality rejects recall grades outside 0-5.
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return apperrors.Validation("quality", "quality must be between %d and %d, got %d", MinQuality, MaxQuality, quality)
	}
	return nil
}
