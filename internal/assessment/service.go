package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/content"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/selection"
)

// OutcomeRecorder registers per-question outcomes after a session is finalized.
// learning.Service implements it.
type OutcomeRecorder interface {
	RecordQuestionOutcome(ctx context.Context, owner, questionRef, subject string, correct bool) (*learning.Item, error)
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Owner    string
	Title    string
	Quantity int
	Filters  content.Filters
	// TimeLimitMinutes overrides the default limit derived from the item count.
	TimeLimitMinutes *int
}

// CreateResult is a persisted session plus a warning when fewer items than requested were available.
type CreateResult struct {
	Session   *Session
	Shortfall *selection.Shortfall
}

// Option configures a Service.
type Option func(*Service)

// WithTimeLimitDefaults sets the default time limit to max(minimumMinutes, items*minutesPerItem).
func WithTimeLimitDefaults(minimumMinutes, minutesPerItem int) Option {
	return func(s *Service) {
		s.minimumMinutes = minimumMinutes
		s.minutesPerItem = minutesPerItem
	}
}

// WithDeadlineEnforcement makes the service finalize expired sessions itself and reject late writes.
// Without it the timeout is left to the client countdown.
func WithDeadlineEnforcement(enabled bool) Option {
	return func(s *Service) {
		s.enforceDeadline = enabled
	}
}

// WithOutcomeRecorder registers question outcomes of finalized sessions.
func WithOutcomeRecorder(recorder OutcomeRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithRand sets the random source used to shuffle candidates.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

// Service implements the session lifecycle on top of a Store.
type Service struct {
	store    Store
	provider content.Provider
	clock    clock.Clock
	recorder OutcomeRecorder
	newID    func() string

	minimumMinutes  int
	minutesPerItem  int
	enforceDeadline bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a new Service.
func NewService(store Store, provider content.Provider, c clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:          store,
		provider:       provider,
		clock:          c,
		newID:          uuid.NewString,
		minimumMinutes: 60,
		minutesPerItem: 3,
		rng:            selection.NewRand(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create draws a shuffled question set and persists a new session.
// An empty candidate pool fails with a pool-exhausted error and persists nothing.
// If the items cannot be stored, the session header is deleted again.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity", "quantity must be at least 1, got %d", req.Quantity)
	}
	if req.TimeLimitMinutes != nil && *req.TimeLimitMinutes < 1 {
		return nil, apperrors.Validation("time_limit_minutes", "time limit must be at least 1 minute, got %d", *req.TimeLimitMinutes)
	}

	candidates, err := s.provider.FetchCandidates(ctx, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("provider.FetchCandidates() > %w", err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.PoolExhausted(req.Quantity)
	}

	s.rngMu.Lock()
	picked, shortfall, err := selection.Sample(s.rng, candidates, req.Quantity)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &Session{
		ID:        s.newID(),
		Owner:     req.Owner,
		Title:     strings.TrimSpace(req.Title),
		Status:    StatusNotStarted,
		CreatedAt: now,
		Items:     make([]Item, len(picked)),
	}
	for i, q := range picked {
		session.Items[i] = Item{Order: i + 1, QuestionID: q.ID}
	}
	if req.TimeLimitMinutes != nil {
		session.TimeLimitMinutes = *req.TimeLimitMinutes
	} else {
		session.TimeLimitMinutes = DefaultTimeLimit(len(picked), s.minimumMinutes, s.minutesPerItem)
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store.CreateSession() > %w", err)
	}
	if err := s.store.CreateItems(ctx, session.ID, session.Items); err != nil {
		if delErr := s.store.DeleteSession(ctx, session.ID); delErr != nil {
			slog.Error("failed to delete session after item persistence failed",
				"session_id", session.ID, "error", delErr)
		}
		return nil, fmt.Errorf("store.CreateItems() > %w", err)
	}

	if shortfall != nil {
		slog.Warn("created session with fewer items than requested",
			"session_id", session.ID, "requested", shortfall.Requested, "available", shortfall.Available)
	}
	return &CreateResult{Session: session, Shortfall: shortfall}, nil
}

// Get returns the owner's session.
func (s *Service) Get(ctx context.Context, owner, id string) (*Session, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.expire(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns the owner's session headers.
func (s *Service) List(ctx context.Context, owner string) ([]Session, error) {
	sessions, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("store.ListByOwner() > %w", err)
	}
	return sessions, nil
}

// Start moves the session into progress. Starting a running session is a no-op;
// starting a completed one fails with a state conflict.
func (s *Service) Start(ctx context.Context, owner, id string) (*Session, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	changed, err := session.Start(s.clock.Now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.store.UpdateStatus(ctx, session); err != nil {
			return nil, fmt.Errorf("store.UpdateStatus() > %w", err)
		}
	}
	return session, nil
}

// RecordAnswer stores an answer for one item. The last write wins.
func (s *Service) RecordAnswer(ctx context.Context, owner, id string, order int, answer string, elapsedSeconds int) (*Session, error) {
	session, err := s.loadWritable(ctx, owner, id, "record answer")
	if err != nil {
		return nil, err
	}
	if err := session.RecordAnswer(order, answer, elapsedSeconds); err != nil {
		return nil, err
	}
	item, _ := session.Item(order)
	if err := s.store.UpdateItems(ctx, id, []Item{item}); err != nil {
		return nil, fmt.Errorf("store.UpdateItems() > %w", err)
	}
	return session, nil
}

// SaveProgress persists answers and flags captured by a client in one batch.
// Items are matched by order; IsCorrect is ignored.
func (s *Service) SaveProgress(ctx context.Context, owner, id string, items []Item) error {
	session, err := s.loadWritable(ctx, owner, id, "save progress")
	if err != nil {
		return err
	}

	updated := make([]Item, 0, len(items))
	for _, in := range items {
		current, err := session.Item(in.Order)
		if err != nil {
			return err
		}
		if in.Answered() {
			elapsed := 0
			if in.ElapsedSeconds != nil {
				elapsed = *in.ElapsedSeconds
			}
			if err := session.RecordAnswer(in.Order, *in.UserAnswer, elapsed); err != nil {
				return err
			}
			current, _ = session.Item(in.Order)
		}
		current.FlaggedForReview = in.FlaggedForReview
		updated = append(updated, current)
	}

	if err := s.store.UpdateItems(ctx, id, updated); err != nil {
		return fmt.Errorf("store.UpdateItems() > %w", err)
	}
	return nil
}

// ToggleFlag flips the review flag of one item.
func (s *Service) ToggleFlag(ctx context.Context, owner, id string, order int) (*Session, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.expire(ctx, session); err != nil {
		return nil, err
	}
	if _, err := session.ToggleFlag(order); err != nil {
		return nil, err
	}
	item, _ := session.Item(order)
	if err := s.store.UpdateItems(ctx, id, []Item{item}); err != nil {
		return nil, fmt.Errorf("store.UpdateItems() > %w", err)
	}
	return session, nil
}

// Finalize scores and completes the session. Finalizing a completed session returns it unchanged.
func (s *Service) Finalize(ctx context.Context, owner, id string) (*Session, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.finalize(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Questions returns the questions of the session keyed by ID.
func (s *Service) Questions(ctx context.Context, session *Session) (map[string]content.Question, error) {
	questions, err := s.provider.GetQuestions(ctx, session.QuestionIDs())
	if err != nil {
		return nil, fmt.Errorf("provider.GetQuestions() > %w", err)
	}
	return content.Index(questions), nil
}

func (s *Service) finalize(ctx context.Context, session *Session) error {
	if session.Status == StatusCompleted {
		return nil
	}
	questions, err := s.Questions(ctx, session)
	if err != nil {
		return err
	}
	changed, err := session.Finalize(questions, s.clock.Now())
	if err != nil || !changed {
		return err
	}
	if err := s.store.SaveResult(ctx, session); err != nil {
		return fmt.Errorf("store.SaveResult() > %w", err)
	}

	slog.Info("finalized session", "session_id", session.ID, "score", *session.Score)
	s.recordOutcomes(ctx, session, questions)
	return nil
}

func (s *Service) recordOutcomes(ctx context.Context, session *Session, questions map[string]content.Question) {
	if s.recorder == nil {
		return
	}
	for _, item := range session.Items {
		if !item.Answered() {
			continue
		}
		q := questions[item.QuestionID]
		if _, err := s.recorder.RecordQuestionOutcome(ctx, session.Owner, item.QuestionID, q.SubjectName, *item.IsCorrect); err != nil {
			slog.Warn("failed to record question outcome",
				"session_id", session.ID, "item_order", item.Order, "error", err)
		}
	}
}

func (s *Service) load(ctx context.Context, owner, id string) (*Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("store.Get(%s) > %w", id, err)
	}
	if session.Owner != owner {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return session, nil
}

// loadWritable loads a session that accepts answers, finalizing it first if it expired.
func (s *Service) loadWritable(ctx context.Context, owner, id, op string) (*Session, error) {
	session, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.expire(ctx, session); err != nil {
		return nil, err
	}
	if session.Status != StatusInProgress {
		return nil, apperrors.StateConflict(op, string(session.Status))
	}
	return session, nil
}

// expire finalizes an expired session when deadline enforcement is enabled.
func (s *Service) expire(ctx context.Context, session *Session) error {
	if !s.enforceDeadline || !session.Expired(s.clock.Now()) {
		return nil
	}
	slog.Info("session deadline passed", "session_id", session.ID)
	return s.finalize(ctx, session)
}
