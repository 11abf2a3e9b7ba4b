package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/scheduler"
)

// Service applies grading events to learning items.
type Service struct {
	repo  ItemRepository
	clock clock.Clock
	newID func() string
}

// NewService creates a new Service.
func NewService(repo ItemRepository, c clock.Clock) *Service {
	return &Service{
		repo:  repo,
		clock: c,
		newID: uuid.NewString,
	}
}

// Grade schedules the owner's item after a grading event and persists the new state.
// Question reviews take a binary grade and flashcards take a 0-5 quality.
func (s *Service) Grade(ctx context.Context, owner, id string, grade scheduler.Grade) (*Item, error) {
	if err := grade.Validate(); err != nil {
		return nil, err
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("repo.Get(%s) > %w", id, err)
	}
	if item.Owner != owner {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if item.Kind.Mode() != grade.Mode() {
		return nil, apperrors.Validation("grade", "%s items take a %s grade, got %s", item.Kind, item.Kind.Mode(), grade)
	}

	if err := s.schedule(item, grade); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("repo.Upsert(%s) > %w", id, err)
	}
	return item, nil
}

// CreateFlashcard registers a new flashcard due today.
// If the owner already has a flashcard for contentRef, that item is returned unchanged.
func (s *Service) CreateFlashcard(ctx context.Context, owner, contentRef, subject string) (*Item, error) {
	if strings.TrimSpace(contentRef) == "" {
		return nil, apperrors.Validation("content_ref", "content reference is required")
	}

	existing, err := s.repo.FindByContent(ctx, owner, KindFlashcard, contentRef)
	if err != nil {
		return nil, fmt.Errorf("repo.FindByContent(%s) > %w", contentRef, err)
	}
	if existing != nil {
		return existing, nil
	}

	item := s.newItem(owner, KindFlashcard, contentRef, subject)
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("repo.Upsert(%s) > %w", item.ID, err)
	}
	return item, nil
}

// RecordQuestionOutcome grades the owner's question review for questionRef, creating it on first exposure.
func (s *Service) RecordQuestionOutcome(ctx context.Context, owner, questionRef, subject string, correct bool) (*Item, error) {
	item, err := s.repo.FindByContent(ctx, owner, KindQuestionReview, questionRef)
	if err != nil {
		return nil, fmt.Errorf("repo.FindByContent(%s) > %w", questionRef, err)
	}
	if item == nil {
		item = s.newItem(owner, KindQuestionReview, questionRef, subject)
	}

	if err := s.schedule(item, scheduler.Binary(correct)); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("repo.Upsert(%s) > %w", item.ID, err)
	}
	return item, nil
}

// Get returns the owner's item.
func (s *Service) Get(ctx context.Context, owner, id string) (*Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("repo.Get(%s) > %w", id, err)
	}
	if item.Owner != owner {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return item, nil
}

func (s *Service) schedule(item *Item, grade scheduler.Grade) error {
	result, err := scheduler.Schedule(item.State(), grade, clock.Today(s.clock))
	if err != nil {
		return err
	}
	item.Apply(result, s.clock.Now())
	return nil
}

func (s *Service) newItem(owner string, kind Kind, contentRef, subject string) *Item {
	now := s.clock.Now()
	state := scheduler.NewState()
	return &Item{
		ID:                   s.newID(),
		Owner:                owner,
		Kind:                 kind,
		ContentRef:           contentRef,
		Subject:              subject,
		DueDate:              clock.DateOf(now),
		IntervalDays:         state.IntervalDays,
		EaseFactor:           state.EaseFactor,
		ConsecutiveSuccesses: state.ConsecutiveSuccesses,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// IsNotFound reports whether err means the item does not exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
