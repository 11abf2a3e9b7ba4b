package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	tests := []struct {
		name  string
		input time.Time
		want  time.Time
	}{
		{
			name:  "drops time of day",
			input: time.Date(2025, 3, 10, 23, 59, 59, 999, time.UTC),
			want:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "keeps caller location",
			input: time.Date(2025, 3, 10, 1, 0, 0, 0, loc),
			want:  time.Date(2025, 3, 10, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(DateOf(tt.input)))
		})
	}
}

func TestAddDays(t *testing.T) {
	base := time.Date(2025, 1, 31, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AddDays(base, 1))
	assert.Equal(t, time.Date(2025, 7, 30, 0, 0, 0, 0, time.UTC), AddDays(base, 180))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 8, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, DaysBetween(a, b))
	assert.Equal(t, -7, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestDaysBetween_DateColumnInNegativeOffset(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	today := time.Date(2026, 10, 18, 9, 0, 0, 0, brt)

	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{name: "tomorrow read back as midnight UTC", due: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), want: 1},
		{name: "today read back as midnight UTC", due: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "yesterday read back as midnight UTC", due: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), want: -1},
		{name: "tomorrow as local midnight", due: time.Date(2026, 10, 19, 0, 0, 0, 0, brt), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(today, tt.due))
		})
	}
}

func TestCalendarDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	brt := time.FixedZone("BRT", -3*60*60)

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), CalendarDate(time.Date(2026, 10, 19, 0, 0, 0, 0, jst)))
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), CalendarDate(time.Date(2026, 10, 18, 23, 30, 0, 0, brt)))
}

func TestFake(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewFake(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Today(c))

	c.Set(start.AddDate(0, 0, 2))
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Today(c))
}
