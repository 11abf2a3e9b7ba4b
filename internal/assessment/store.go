package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/database"
)

//go:generate mockgen -source=store.go -destination=../mocks/assessment/mock_store.go -package=mock_assessment

// ErrNotFound is returned when no session matches.
var ErrNotFound = errors.New("assessment session not found")

// Store persists sessions. Item writes are last-write-wins.
type Store interface {
	// CreateSession inserts the session header without its items.
	CreateSession(ctx context.Context, s *Session) error
	CreateItems(ctx context.Context, sessionID string, items []Item) error
	DeleteSession(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByOwner(ctx context.Context, owner string) ([]Session, error)
	// UpdateStatus writes status, timestamps and score.
	UpdateStatus(ctx context.Context, s *Session) error
	UpdateItems(ctx context.Context, sessionID string, items []Item) error
	// SaveResult writes every item and the header of a finalized session atomically.
	SaveResult(ctx context.Context, s *Session) error
}

const (
	sessionColumns = "id, owner, title, status, time_limit_minutes, started_at, completed_at, score, created_at"
	itemColumns    = "item_order, question_id, user_answer, elapsed_seconds, flagged_for_review, is_correct"
)

// DBStore implements Store on any sqlx driver.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a new DBStore.
func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db}
}

// CreateSession inserts the session header.
func (r *DBStore) CreateSession(ctx context.Context, s *Session) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("INSERT INTO assessment_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		s.ID, s.Owner, s.Title, s.Status, s.TimeLimitMinutes, s.StartedAt, s.CompletedAt, s.Score, s.CreatedAt); err != nil {
		return apperrors.Transient("create session", fmt.Errorf("db.ExecContext(insert assessment_session) > %w", err))
	}
	return nil
}

// CreateItems inserts items with a multi-row insert in one transaction.
func (r *DBStore) CreateItems(ctx context.Context, sessionID string, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		columns := []string{"session_id", "item_order", "question_id", "user_answer", "elapsed_seconds", "flagged_for_review", "is_correct"}
		query := database.BuildMultiRowInsert("assessment_items", columns, len(items))

		var args []any
		for _, item := range items {
			args = append(args, sessionID, item.Order, item.QuestionID, item.UserAnswer, item.ElapsedSeconds, item.FlaggedForReview, item.IsCorrect)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("insert assessment_items: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Transient("create items", err)
	}
	return nil
}

// DeleteSession removes the session and its items.
func (r *DBStore) DeleteSession(ctx context.Context, id string) error {
	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM assessment_items WHERE session_id = ?"), id); err != nil {
			return fmt.Errorf("delete assessment_items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM assessment_sessions WHERE id = ?"), id); err != nil {
			return fmt.Errorf("delete assessment_session: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Transient("delete session", err)
	}
	return nil
}

// Get returns the session with its items in order, or ErrNotFound.
func (r *DBStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, r.db.Rebind("SELECT "+sessionColumns+" FROM assessment_sessions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Transient("get session", fmt.Errorf("db.GetContext(assessment_session) > %w", err))
	}

	if err := r.db.SelectContext(ctx, &s.Items,
		r.db.Rebind("SELECT "+itemColumns+" FROM assessment_items WHERE session_id = ? ORDER BY item_order"), id); err != nil {
		return nil, apperrors.Transient("get session", fmt.Errorf("db.SelectContext(assessment_items) > %w", err))
	}
	return &s, nil
}

// ListByOwner returns session headers of owner, newest first. Items are not loaded.
func (r *DBStore) ListByOwner(ctx context.Context, owner string) ([]Session, error) {
	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions,
		r.db.Rebind("SELECT "+sessionColumns+" FROM assessment_sessions WHERE owner = ? ORDER BY created_at DESC, id"), owner); err != nil {
		return nil, apperrors.Transient("list sessions", fmt.Errorf("db.SelectContext(assessment_sessions) > %w", err))
	}
	return sessions, nil
}

// UpdateStatus writes the lifecycle fields of the session header.
func (r *DBStore) UpdateStatus(ctx context.Context, s *Session) error {
	if err := updateStatus(ctx, r.db, s); err != nil {
		return apperrors.Transient("update status", err)
	}
	return nil
}

// UpdateItems overwrites the mutable fields of items.
func (r *DBStore) UpdateItems(ctx context.Context, sessionID string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return updateItems(ctx, tx, sessionID, items)
	})
	if err != nil {
		return apperrors.Transient("update items", err)
	}
	return nil
}

// SaveResult writes the scored items and the completed header in one transaction.
func (r *DBStore) SaveResult(ctx context.Context, s *Session) error {
	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := updateItems(ctx, tx, s.ID, s.Items); err != nil {
			return err
		}
		return updateStatus(ctx, tx, s)
	})
	if err != nil {
		return apperrors.Transient("save result", err)
	}
	return nil
}

func updateStatus(ctx context.Context, ext sqlx.ExtContext, s *Session) error {
	if _, err := ext.ExecContext(ctx,
		ext.Rebind("UPDATE assessment_sessions SET status = ?, started_at = ?, completed_at = ?, score = ? WHERE id = ?"),
		s.Status, s.StartedAt, s.CompletedAt, s.Score, s.ID); err != nil {
		return fmt.Errorf("update assessment_session: %w", err)
	}
	return nil
}

func updateItems(ctx context.Context, ext sqlx.ExtContext, sessionID string, items []Item) error {
	query := ext.Rebind("UPDATE assessment_items SET user_answer = ?, elapsed_seconds = ?, flagged_for_review = ?, is_correct = ? WHERE session_id = ? AND item_order = ?")
	for _, item := range items {
		if _, err := ext.ExecContext(ctx, query,
			item.UserAnswer, item.ElapsedSeconds, item.FlaggedForReview, item.IsCorrect, sessionID, item.Order); err != nil {
			return fmt.Errorf("update assessment_item(%d): %w", item.Order, err)
		}
	}
	return nil
}
