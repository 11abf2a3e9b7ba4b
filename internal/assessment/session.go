// Package assessment runs timed, resumable mock-exam sessions.
package assessment

import (
	"math"
	"regexp"
	"time"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/content"
)

// Status is the lifecycle state of a session. Transitions only move forward.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var answerPattern = regexp.MustCompile(`^[A-E]$`)

// Item is one question of a session in presentation order.
type Item struct {
	Order            int     `db:"item_order" json:"order"`
	QuestionID       string  `db:"question_id" json:"questionId"`
	UserAnswer       *string `db:"user_answer" json:"userAnswer,omitempty"`
	ElapsedSeconds   *int    `db:"elapsed_seconds" json:"elapsedSeconds,omitempty"`
	FlaggedForReview bool    `db:"flagged_for_review" json:"flaggedForReview"`
	// IsCorrect is set only when the session is finalized.
	IsCorrect *bool `db:"is_correct" json:"isCorrect,omitempty"`
}

// Answered reports whether the item has a recorded answer.
func (i Item) Answered() bool {
	return i.UserAnswer != nil && *i.UserAnswer != ""
}

// Session is a timed exam over a fixed, ordered list of items.
type Session struct {
	ID               string     `db:"id" json:"id"`
	Owner            string     `db:"owner" json:"owner"`
	Title            string     `db:"title" json:"title"`
	Status           Status     `db:"status" json:"status"`
	TimeLimitMinutes int        `db:"time_limit_minutes" json:"timeLimitMinutes"`
	StartedAt        *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	// Score is a percentage with two decimals, valid once the session is completed.
	Score     *float64  `db:"score" json:"score,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Items     []Item    `db:"-" json:"items"`
}

// DefaultTimeLimit returns the time limit used when none is given.
func DefaultTimeLimit(itemCount, minimumMinutes, minutesPerItem int) int {
	return max(minimumMinutes, itemCount*minutesPerItem)
}

// Start moves the session into progress. It reports whether anything changed:
// starting a session that is already in progress is a no-op.
func (s *Session) Start(now time.Time) (bool, error) {
	switch s.Status {
	case StatusNotStarted:
		s.Status = StatusInProgress
		s.StartedAt = &now
		return true, nil
	case StatusInProgress:
		return false, nil
	default:
		return false, apperrors.StateConflict("start", string(s.Status))
	}
}

// RecordAnswer stores answer for the item at order. The last write wins.
func (s *Session) RecordAnswer(order int, answer string, elapsedSeconds int) error {
	if s.Status != StatusInProgress {
		return apperrors.StateConflict("record answer", string(s.Status))
	}
	item, err := s.item(order)
	if err != nil {
		return err
	}
	if !answerPattern.MatchString(answer) {
		return apperrors.Validation("answer", "answer must be an option label A-E, got %q", answer)
	}
	if elapsedSeconds < 0 {
		return apperrors.Validation("elapsed_seconds", "elapsed seconds must not be negative, got %d", elapsedSeconds)
	}
	item.UserAnswer = &answer
	item.ElapsedSeconds = &elapsedSeconds
	return nil
}

// ToggleFlag flips the review flag of the item at order and returns the new value.
func (s *Session) ToggleFlag(order int) (bool, error) {
	if s.Status == StatusCompleted {
		return false, apperrors.StateConflict("toggle flag", string(s.Status))
	}
	item, err := s.item(order)
	if err != nil {
		return false, err
	}
	item.FlaggedForReview = !item.FlaggedForReview
	return item.FlaggedForReview, nil
}

// Finalize scores the session against questions and completes it.
// It reports whether anything changed: finalizing a completed session is a no-op.
// Unanswered items and items whose question is missing count as incorrect.
func (s *Session) Finalize(questions map[string]content.Question, now time.Time) (bool, error) {
	switch s.Status {
	case StatusCompleted:
		return false, nil
	case StatusNotStarted:
		return false, apperrors.StateConflict("finalize", string(s.Status))
	}

	correct := 0
	for i := range s.Items {
		item := &s.Items[i]
		isCorrect := false
		if q, ok := questions[item.QuestionID]; ok && item.Answered() {
			isCorrect = q.IsCorrect(*item.UserAnswer)
		}
		item.IsCorrect = &isCorrect
		if isCorrect {
			correct++
		}
	}

	score := ScorePercent(correct, len(s.Items))
	s.Score = &score
	s.Status = StatusCompleted
	s.CompletedAt = &now
	return true, nil
}

// ScorePercent returns correct/total as a percentage rounded to two decimals.
func ScorePercent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}

// Deadline returns when the session times out. ok is false before the session starts.
func (s *Session) Deadline() (deadline time.Time, ok bool) {
	if s.StartedAt == nil {
		return time.Time{}, false
	}
	return s.StartedAt.Add(time.Duration(s.TimeLimitMinutes) * time.Minute), true
}

// Remaining returns the time left at now, never negative.
// A session that has not started has its whole time limit left.
func (s *Session) Remaining(now time.Time) time.Duration {
	deadline, ok := s.Deadline()
	if !ok {
		return time.Duration(s.TimeLimitMinutes) * time.Minute
	}
	return max(deadline.Sub(now), 0)
}

// Expired reports whether an in-progress session has run out of time at now.
func (s *Session) Expired(now time.Time) bool {
	deadline, ok := s.Deadline()
	return ok && s.Status == StatusInProgress && !now.Before(deadline)
}

// QuestionIDs returns the question IDs in presentation order.
func (s *Session) QuestionIDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.QuestionID
	}
	return ids
}

// Item returns a copy of the item at order.
func (s *Session) Item(order int) (Item, error) {
	item, err := s.item(order)
	if err != nil {
		return Item{}, err
	}
	return *item, nil
}

func (s *Session) item(order int) (*Item, error) {
	if order < 1 || order > len(s.Items) {
		return nil, apperrors.Validation("item_order", "item order must be between 1 and %d, got %d", len(s.Items), order)
	}
	item := &s.Items[order-1]
	if item.Order != order {
		for i := range s.Items {
			if s.Items[i].Order == order {
				return &s.Items[i], nil
			}
		}
	}
	return item, nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.StartedAt = clonePtr(s.StartedAt)
	c.CompletedAt = clonePtr(s.CompletedAt)
	c.Score = clonePtr(s.Score)
	c.Items = make([]Item, len(s.Items))
	for i, item := range s.Items {
		item.UserAnswer = clonePtr(item.UserAnswer)
		item.ElapsedSeconds = clonePtr(item.ElapsedSeconds)
		item.IsCorrect = clonePtr(item.IsCorrect)
		c.Items[i] = item
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
