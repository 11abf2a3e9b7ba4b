// Package learning stores spaced-repetition items and applies grading events to them.
package learning

import (
	"time"

	"github.com/at-ishikawa/studyprep/internal/scheduler"
)

// Kind distinguishes the two learning item call sites.
type Kind string

const (
	KindQuestionReview Kind = "question_review"
	KindFlashcard      Kind = "flashcard"
)

// Mode returns the scheduling variant used for items of this kind.
func (k Kind) Mode() scheduler.Mode {
	if k == KindFlashcard {
		return scheduler.ModeGraded
	}
	return scheduler.ModeBinary
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindQuestionReview || k == KindFlashcard
}

// Item is a question review or flashcard owned by a single user.
type Item struct {
	ID                   string    `db:"id" json:"id"`
	Owner                string    `db:"owner" json:"owner"`
	Kind                 Kind      `db:"kind" json:"kind"`
	ContentRef           string    `db:"content_ref" json:"contentRef"`
	Subject              string    `db:"subject" json:"subject"`
	DueDate              time.Time `db:"due_date" json:"dueDate"`
	IntervalDays         int       `db:"interval_days" json:"intervalDays"`
	EaseFactor           float64   `db:"ease_factor" json:"easeFactor"`
	ConsecutiveSuccesses int       `db:"consecutive_successes" json:"consecutiveSuccesses"`
	LastOutcome          *bool     `db:"last_outcome" json:"lastOutcome,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// State returns the scheduling state of the item.
func (i Item) State() scheduler.State {
	return scheduler.State{
		EaseFactor:           i.EaseFactor,
		ConsecutiveSuccesses: i.ConsecutiveSuccesses,
		IntervalDays:         i.IntervalDays,
	}
}

// Apply copies a scheduling result onto the item.
func (i *Item) Apply(result scheduler.Result, now time.Time) {
	success := result.Success
	i.EaseFactor = result.EaseFactor
	i.ConsecutiveSuccesses = result.ConsecutiveSuccesses
	i.IntervalDays = result.IntervalDays
	i.DueDate = result.DueDate
	i.LastOutcome = &success
	i.UpdatedAt = now
}
