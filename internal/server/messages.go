package server

import (
	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/review"
)

type GetQueueRequest struct {
	// ReferenceDate is a YYYY-MM-DD date. Today is used when empty.
	ReferenceDate string `json:"referenceDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// Limit caps the returned items. Zero uses the configured daily limit.
	Limit int `json:"limit,omitempty" validate:"min=0,max=1000"`
}

type GetQueueResponse struct {
	ReferenceDate string                `json:"referenceDate"`
	Counts        review.Counts         `json:"counts"`
	Subjects      []review.SubjectGroup `json:"subjects"`
	Items         []learning.Item       `json:"items"`
	TotalDue      int                   `json:"totalDue"`
}

// GradeItemRequest carries either Correct for question reviews or Quality for flashcards.
type GradeItemRequest struct {
	ItemID  string `json:"itemId" validate:"required"`
	Correct *bool  `json:"correct,omitempty"`
	Quality *int   `json:"quality,omitempty" validate:"omitempty,min=0,max=5"`
}

type GradeItemResponse struct {
	Item *learning.Item `json:"item"`
}

type CreateFlashcardRequest struct {
	ContentRef string `json:"contentRef" validate:"required,max=255"`
	Subject    string `json:"subject" validate:"max=255"`
}

type CreateFlashcardResponse struct {
	Item *learning.Item `json:"item"`
}

type CreateSessionRequest struct {
	Title            string   `json:"title" validate:"required,max=255"`
	Quantity         int      `json:"quantity" validate:"min=1,max=500"`
	SourceID         string   `json:"sourceId,omitempty"`
	SubjectIDs       []string `json:"subjectIds,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
	TimeLimitMinutes *int     `json:"timeLimitMinutes,omitempty" validate:"omitempty,min=1"`
}

// Shortfall tells the client that fewer items than requested were drawn.
type Shortfall struct {
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Message   string `json:"message"`
}

type CreateSessionResponse struct {
	Session   *assessment.Session `json:"session"`
	Shortfall *Shortfall          `json:"shortfall,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type SessionResponse struct {
	Session          *assessment.Session `json:"session"`
	RemainingSeconds int64               `json:"remainingSeconds"`
	// Summary is set once the session is completed.
	Summary *assessment.Summary `json:"summary,omitempty"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []assessment.Session `json:"sessions"`
}

type RecordAnswerRequest struct {
	SessionID      string `json:"sessionId" validate:"required"`
	ItemOrder      int    `json:"itemOrder" validate:"min=1"`
	Answer         string `json:"answer" validate:"required,oneof=A B C D E"`
	ElapsedSeconds int    `json:"elapsedSeconds" validate:"min=0"`
}

type ToggleFlagRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	ItemOrder int    `json:"itemOrder" validate:"min=1"`
}

type ToggleFlagResponse struct {
	Flagged bool                `json:"flagged"`
	Session *assessment.Session `json:"session"`
}

type SaveProgressRequest struct {
	SessionID string            `json:"sessionId" validate:"required"`
	Items     []assessment.Item `json:"items" validate:"required,min=1"`
}

type SaveProgressResponse struct{}
