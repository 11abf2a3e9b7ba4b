package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

var today = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchedule_Binary(t *testing.T) {
	tests := []struct {
		name    string
		current State
		correct bool
		want    State
	}{
		{
			name:    "first success",
			current: NewState(),
			correct: true,
			want:    State{EaseFactor: 2.5, ConsecutiveSuccesses: 1, IntervalDays: 1},
		},
		{
			name:    "second success uses three days",
			current: State{EaseFactor: 2.0, ConsecutiveSuccesses: 1, IntervalDays: 1},
			correct: true,
			want:    State{EaseFactor: 2.1, ConsecutiveSuccesses: 2, IntervalDays: 3},
		},
		{
			name:    "third success grows geometrically",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 2, IntervalDays: 3},
			correct: true,
			want:    State{EaseFactor: 2.5, ConsecutiveSuccesses: 3, IntervalDays: 19}, // round(2.5^2 * 3)
		},
		{
			name:    "fourth success",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 3, IntervalDays: 19},
			correct: true,
			want:    State{EaseFactor: 2.5, ConsecutiveSuccesses: 4, IntervalDays: 47}, // round(2.5^3 * 3)
		},
		{
			name:    "long streak is capped at 180 days",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 5, IntervalDays: 117},
			correct: true,
			want:    State{EaseFactor: 2.5, ConsecutiveSuccesses: 6, IntervalDays: 180},
		},
		{
			name:    "failure resets streak and interval",
			current: State{EaseFactor: 2.0, ConsecutiveSuccesses: 3, IntervalDays: 19},
			correct: false,
			want:    State{EaseFactor: 1.8, ConsecutiveSuccesses: 0, IntervalDays: 1},
		},
		{
			name:    "failure never drops ease below minimum",
			current: State{EaseFactor: 1.4, ConsecutiveSuccesses: 0, IntervalDays: 1},
			correct: false,
			want:    State{EaseFactor: MinEaseFactor, ConsecutiveSuccesses: 0, IntervalDays: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Schedule(tt.current, Binary(tt.correct), today)
			require.NoError(t, err)

			assert.InDelta(t, tt.want.EaseFactor, got.EaseFactor, 1e-9)
			assert.Equal(t, tt.want.ConsecutiveSuccesses, got.ConsecutiveSuccesses)
			assert.Equal(t, tt.want.IntervalDays, got.IntervalDays)
			assert.Equal(t, tt.correct, got.Success)
			assert.Equal(t, date(2025, 3, 10).AddDate(0, 0, tt.want.IntervalDays), got.DueDate)
		})
	}
}

func TestSchedule_Graded(t *testing.T) {
	tests := []struct {
		name    string
		current State
		quality int
		want    State
	}{
		{
			name:    "quality 5 on new card",
			current: NewState(),
			quality: 5,
			want:    State{EaseFactor: 2.6, ConsecutiveSuccesses: 1, IntervalDays: 1},
		},
		{
			name:    "second success uses six days",
			current: State{EaseFactor: 2.6, ConsecutiveSuccesses: 1, IntervalDays: 1},
			quality: 4,
			want:    State{EaseFactor: 2.6, ConsecutiveSuccesses: 2, IntervalDays: 6},
		},
		{
			name:    "quality 4 keeps ease and multiplies interval",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 2, IntervalDays: 6},
			quality: 4,
			want:    State{EaseFactor: 2.5, ConsecutiveSuccesses: 3, IntervalDays: 15},
		},
		{
			name:    "quality 3 lowers ease slightly",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 2, IntervalDays: 6},
			quality: 3,
			want:    State{EaseFactor: 2.36, ConsecutiveSuccesses: 3, IntervalDays: 14}, // round(6 * 2.36)
		},
		{
			name:    "interval is capped at 180 days",
			current: State{EaseFactor: 2.8, ConsecutiveSuccesses: 6, IntervalDays: 120},
			quality: 5,
			want:    State{EaseFactor: 2.9, ConsecutiveSuccesses: 7, IntervalDays: 180},
		},
		{
			name:    "quality 2 is a failure",
			current: State{EaseFactor: 2.5, ConsecutiveSuccesses: 4, IntervalDays: 40},
			quality: 2,
			want:    State{EaseFactor: 2.3, ConsecutiveSuccesses: 0, IntervalDays: 1},
		},
		{
			name:    "quality 0 at minimum ease",
			current: State{EaseFactor: 1.3, ConsecutiveSuccesses: 1, IntervalDays: 1},
			quality: 0,
			want:    State{EaseFactor: 1.3, ConsecutiveSuccesses: 0, IntervalDays: 1},
		},
		{
			name:    "zero ease is treated as default",
			current: State{},
			quality: 5,
			want:    State{EaseFactor: 2.6, ConsecutiveSuccesses: 1, IntervalDays: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Schedule(tt.current, Graded(tt.quality), today)
			require.NoError(t, err)

			assert.InDelta(t, tt.want.EaseFactor, got.EaseFactor, 1e-9)
			assert.Equal(t, tt.want.ConsecutiveSuccesses, got.ConsecutiveSuccesses)
			assert.Equal(t, tt.want.IntervalDays, got.IntervalDays)
		})
	}
}

func TestSchedule_InvalidQuality(t *testing.T) {
	for _, quality := range []int{-1, 6, 100} {
		_, err := Schedule(NewState(), Graded(quality), today)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	}
}

func TestSchedule_NewFlashcardPerfectRecall(t *testing.T) {
	state := State{EaseFactor: 2.5, ConsecutiveSuccesses: 0, IntervalDays: 1}

	first, err := Schedule(state, Graded(5), today)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ConsecutiveSuccesses)
	assert.Equal(t, 1, first.IntervalDays)
	assert.Equal(t, date(2025, 3, 11), first.DueDate)

	second, err := Schedule(first.State, Graded(5), today)
	require.NoError(t, err)
	assert.Equal(t, 2, second.ConsecutiveSuccesses)
	assert.Equal(t, 6, second.IntervalDays)
}

func TestSchedule_QuestionReviewFailureAfterStreak(t *testing.T) {
	got, err := Schedule(State{EaseFactor: 2.0, ConsecutiveSuccesses: 3, IntervalDays: 19}, Binary(false), today)
	require.NoError(t, err)
	assert.InDelta(t, 1.8, got.EaseFactor, 1e-9)
	assert.Equal(t, 0, got.ConsecutiveSuccesses)
	assert.Equal(t, 1, got.IntervalDays)
}

func TestSchedule_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 200; run++ {
		binary := NewState()
		graded := NewState()
		for step := 0; step < 60; step++ {
			correct := rng.IntN(4) != 0
			b, err := Schedule(binary.withDefaults(), Binary(correct), today)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, b.EaseFactor, MinEaseFactor)
			assert.LessOrEqual(t, b.EaseFactor, MaxBinaryEaseFactor)
			assert.GreaterOrEqual(t, b.IntervalDays, 1)
			assert.LessOrEqual(t, b.IntervalDays, MaxIntervalDays)
			if !correct {
				assert.Equal(t, 0, b.ConsecutiveSuccesses)
				assert.Equal(t, 1, b.IntervalDays)
			}
			binary = b.State

			quality := rng.IntN(MaxQuality + 1)
			g, err := Schedule(graded, Graded(quality), today)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, g.EaseFactor, MinEaseFactor)
			assert.GreaterOrEqual(t, g.IntervalDays, 1)
			assert.LessOrEqual(t, g.IntervalDays, MaxIntervalDays)
			if quality < PassingQuality {
				assert.Equal(t, 0, g.ConsecutiveSuccesses)
				assert.Equal(t, 1, g.IntervalDays)
			}
			assert.Equal(t, today.Truncate(24*time.Hour).AddDate(0, 0, g.IntervalDays), g.DueDate)
			graded = g.State
		}
	}
}

func (s State) withDefaults() State {
	return normalize(s)
}

func TestGrade(t *testing.T) {
	assert.Equal(t, ModeBinary, Binary(true).Mode())
	assert.Equal(t, 5, Binary(true).Quality())
	assert.Equal(t, 0, Binary(false).Quality())
	assert.Equal(t, 4, Graded(4).Quality())
	assert.True(t, Graded(3).Success())
	assert.False(t, Graded(2).Success())
	assert.Equal(t, "graded(4)", Graded(4).String())
	assert.Equal(t, "binary(false)", Binary(false).String())
}

func TestSchedule_GradedUsesGradeQuality(t *testing.T) {
	current := State{EaseFactor: 2.5, ConsecutiveSuccesses: 2, IntervalDays: 6}

	for quality := MinQuality; quality <= MaxQuality; quality++ {
		grade := Graded(quality)
		got, err := Schedule(current, grade, today)
		require.NoError(t, err)
		assert.Equal(t, scheduleGraded(current, grade.Quality()), got.State, "quality %d", quality)
	}
}
