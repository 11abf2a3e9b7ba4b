package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/clock"
)

//go:generate mockgen -source=repository.go -destination=../mocks/learning/mock_repository.go -package=mock_learning

// ErrNotFound is returned when no learning item matches.
var ErrNotFound = errors.New("learning item not found")

// ItemRepository persists learning items. Writes are last-write-wins.
type ItemRepository interface {
	Get(ctx context.Context, id string) (*Item, error)
	// FindByContent returns nil without an error when the owner has no item for contentRef.
	FindByContent(ctx context.Context, owner string, kind Kind, contentRef string) (*Item, error)
	// ListDueBefore returns the owner's items with due_date on or before date.
	ListDueBefore(ctx context.Context, owner string, date time.Time) ([]Item, error)
	ListByOwner(ctx context.Context, owner string) ([]Item, error)
	Upsert(ctx context.Context, item *Item) error
}

const itemColumns = "id, owner, kind, content_ref, subject, due_date, interval_days, ease_factor, consecutive_successes, last_outcome, created_at, updated_at"

// DBItemRepository implements ItemRepository on any sqlx driver.
type DBItemRepository struct {
	db *sqlx.DB
}

// NewDBItemRepository creates a new DBItemRepository.
func NewDBItemRepository(db *sqlx.DB) *DBItemRepository {
	return &DBItemRepository{db: db}
}

// Get returns the item with id or ErrNotFound.
func (r *DBItemRepository) Get(ctx context.Context, id string) (*Item, error) {
	var item Item
	err := r.db.GetContext(ctx, &item, r.db.Rebind("SELECT "+itemColumns+" FROM learning_items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Transient("get learning item", fmt.Errorf("db.GetContext(learning_item) > %w", err))
	}
	return &item, nil
}

// FindByContent returns the owner's item for contentRef, or nil if there is none.
func (r *DBItemRepository) FindByContent(ctx context.Context, owner string, kind Kind, contentRef string) (*Item, error) {
	var item Item
	err := r.db.GetContext(ctx, &item,
		r.db.Rebind("SELECT "+itemColumns+" FROM learning_items WHERE owner = ? AND kind = ? AND content_ref = ?"),
		owner, kind, contentRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Transient("find learning item", fmt.Errorf("db.GetContext(learning_item by content) > %w", err))
	}
	return &item, nil
}

// ListDueBefore returns the owner's items due on or before date, earliest first.
// Only the calendar date of date is compared.
func (r *DBItemRepository) ListDueBefore(ctx context.Context, owner string, date time.Time) ([]Item, error) {
	var items []Item
	query := r.db.Rebind("SELECT " + itemColumns + " FROM learning_items WHERE owner = ? AND due_date <= ? ORDER BY due_date, id")
	if err := r.db.SelectContext(ctx, &items, query, owner, clock.CalendarDate(date)); err != nil {
		return nil, apperrors.Transient("list due learning items", fmt.Errorf("db.SelectContext(learning_items due) > %w", err))
	}
	return items, nil
}

// ListByOwner returns every item of the owner ordered by due date.
func (r *DBItemRepository) ListByOwner(ctx context.Context, owner string) ([]Item, error) {
	var items []Item
	query := r.db.Rebind("SELECT " + itemColumns + " FROM learning_items WHERE owner = ? ORDER BY due_date, id")
	if err := r.db.SelectContext(ctx, &items, query, owner); err != nil {
		return nil, apperrors.Transient("list learning items", fmt.Errorf("db.SelectContext(learning_items) > %w", err))
	}
	return items, nil
}

// Upsert overwrites the stored item or inserts it when it does not exist yet.
// The due date is stored as its calendar date.
func (r *DBItemRepository) Upsert(ctx context.Context, item *Item) error {
	if !item.Kind.Valid() {
		return apperrors.Validation("kind", "unknown learning item kind %q", item.Kind)
	}
	dueDate := clock.CalendarDate(item.DueDate)

	result, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE learning_items SET
		subject = ?, due_date = ?, interval_days = ?, ease_factor = ?, consecutive_successes = ?, last_outcome = ?, updated_at = ?
		WHERE id = ?`),
		item.Subject, dueDate, item.IntervalDays, item.EaseFactor, item.ConsecutiveSuccesses, item.LastOutcome, item.UpdatedAt,
		item.ID)
	if err != nil {
		return apperrors.Transient("upsert learning item", fmt.Errorf("db.ExecContext(update learning_item) > %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Transient("upsert learning item", fmt.Errorf("result.RowsAffected() > %w", err))
	}
	if affected > 0 {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind("INSERT INTO learning_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		item.ID, item.Owner, item.Kind, item.ContentRef, item.Subject, dueDate, item.IntervalDays, item.EaseFactor,
		item.ConsecutiveSuccesses, item.LastOutcome, item.CreatedAt, item.UpdatedAt); err != nil {
		return apperrors.Transient("upsert learning item", fmt.Errorf("db.ExecContext(insert learning_item) > %w", err))
	}
	return nil
}
