// Package content reads immutable question content from the question pool.
package content

import (
	"context"
	"strings"
)

//go:generate mockgen -source=question.go -destination=../mocks/content/mock_provider.go -package=mock_content

// StatusActive marks questions that may be drawn into assessments.
const StatusActive = "active"

// Option is one labeled answer choice.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is an immutable multiple-choice or true/false question.
type Question struct {
	ID            string   `json:"id"`
	SourceID      string   `json:"sourceId"`
	SubjectID     string   `json:"subjectId"`
	SubjectName   string   `json:"subjectName"`
	Difficulty    string   `json:"difficulty"`
	Statement     string   `json:"statement"`
	Options       []Option `json:"options"`
	CorrectOption string   `json:"correctOption"`
	Explanation   string   `json:"explanation,omitempty"`
	Status        string   `json:"status"`
}

// IsBinaryStyle reports whether the question has exactly two non-empty options,
// as in true/false ("Certo/Errado") exams.
func (q Question) IsBinaryStyle() bool {
	count := 0
	for _, o := range q.Options {
		if strings.TrimSpace(o.Text) != "" {
			count++
		}
	}
	return count == 2
}

// HasOption reports whether label is one of the question's non-empty options.
func (q Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label && strings.TrimSpace(o.Text) != "" {
			return true
		}
	}
	return false
}

// IsCorrect compares an answer with the correct option.
func (q Question) IsCorrect(answer string) bool {
	return answer != "" && answer == q.CorrectOption
}

// Filters narrow the candidate pool. Empty fields match everything.
type Filters struct {
	SourceID   string   `json:"sourceId,omitempty"`
	SubjectIDs []string `json:"subjectIds,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// Provider reads questions from the content library.
type Provider interface {
	// FetchCandidates returns active questions matching filters.
	FetchCandidates(ctx context.Context, filters Filters) ([]Question, error)
	// GetQuestions returns the questions with the given IDs. Unknown IDs are skipped.
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
}

// Index maps questions by ID.
func Index(questions []Question) map[string]Question {
	m := make(map[string]Question, len(questions))
	for _, q := range questions {
		m[q.ID] = q
	}
	return m
}
