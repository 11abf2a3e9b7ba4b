// Package server provides Connect RPC handlers for the review and assessment services.
package server

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/review"
	"github.com/at-ishikawa/studyprep/internal/scheduler"
)

// ReviewHandler serves the review queue and grading of learning items.
type ReviewHandler struct {
	learning   *learning.Service
	queue      *review.Builder
	clock      clock.Clock
	dailyLimit int
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(learningService *learning.Service, queue *review.Builder, c clock.Clock, dailyLimit int) *ReviewHandler {
	return &ReviewHandler{
		learning:   learningService,
		queue:      queue,
		clock:      c,
		dailyLimit: dailyLimit,
	}
}

// GetQueue returns the caller's due items and the day-bucketed counts.
func (h *ReviewHandler) GetQueue(
	ctx context.Context,
	req *connect.Request[GetQueueRequest],
) (*connect.Response[GetQueueResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	referenceDate := clock.Today(h.clock)
	if req.Msg.ReferenceDate != "" {
		referenceDate, err = time.ParseInLocation(time.DateOnly, req.Msg.ReferenceDate, referenceDate.Location())
		if err != nil {
			return nil, toConnectError(apperrors.Validation("referenceDate", "invalid date %q", req.Msg.ReferenceDate))
		}
	}

	queue, err := h.queue.Build(ctx, owner, referenceDate)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("build queue: %w", err))
	}

	limit := req.Msg.Limit
	if limit == 0 {
		limit = h.dailyLimit
	}
	items := queue.Next(limit)
	if items == nil {
		items = []learning.Item{}
	}

	return connect.NewResponse(&GetQueueResponse{
		ReferenceDate: queue.ReferenceDate.Format(time.DateOnly),
		Counts:        queue.Counts,
		Subjects:      queue.Subjects,
		Items:         items,
		TotalDue:      len(queue.Due),
	}), nil
}

// GradeItem applies a grading event to one of the caller's items.
func (h *ReviewHandler) GradeItem(
	ctx context.Context,
	req *connect.Request[GradeItemRequest],
) (*connect.Response[GradeItemResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	var grade scheduler.Grade
	switch {
	case req.Msg.Correct != nil && req.Msg.Quality != nil:
		return nil, toConnectError(apperrors.Validation("grade", "set either correct or quality, not both"))
	case req.Msg.Quality != nil:
		grade = scheduler.Graded(*req.Msg.Quality)
	case req.Msg.Correct != nil:
		grade = scheduler.Binary(*req.Msg.Correct)
	default:
		return nil, toConnectError(apperrors.Validation("grade", "correct or quality is required"))
	}

	item, err := h.learning.Grade(ctx, owner, req.Msg.ItemID, grade)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("grade item(%s): %w", req.Msg.ItemID, err))
	}
	return connect.NewResponse(&GradeItemResponse{Item: item}), nil
}

// CreateFlashcard registers a flashcard for the caller.
func (h *ReviewHandler) CreateFlashcard(
	ctx context.Context,
	req *connect.Request[CreateFlashcardRequest],
) (*connect.Response[CreateFlashcardResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	item, err := h.learning.CreateFlashcard(ctx, owner, req.Msg.ContentRef, req.Msg.Subject)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("create flashcard: %w", err))
	}
	return connect.NewResponse(&CreateFlashcardResponse{Item: item}), nil
}
