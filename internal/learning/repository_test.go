package learning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

var itemColumnNames = []string{
	"id", "owner", "kind", "content_ref", "subject", "due_date", "interval_days", "ease_factor",
	"consecutive_successes", "last_outcome", "created_at", "updated_at",
}

func newMockRepository(t *testing.T) (*DBItemRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDBItemRepository(sqlx.NewDb(db, "mysql")), mock
}

func TestDBItemRepository_Get(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		want        *Item
		wantErr     error
		wantErrKind apperrors.Kind
	}{
		{
			name: "returns the item",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(itemColumnNames).
					AddRow("item-1", "user-1", "flashcard", "card-1", "Math", due, 3, 2.36, 2, true, now, now)
				mock.ExpectQuery("SELECT .+ FROM learning_items WHERE id = \\?").
					WithArgs("item-1").
					WillReturnRows(rows)
			},
			want: &Item{
				ID: "item-1", Owner: "user-1", Kind: KindFlashcard, ContentRef: "card-1", Subject: "Math",
				DueDate: due, IntervalDays: 3, EaseFactor: 2.36, ConsecutiveSuccesses: 2,
				LastOutcome: boolPtr(true), CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM learning_items WHERE id = \\?").
					WithArgs("item-1").
					WillReturnRows(sqlmock.NewRows(itemColumnNames))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "db error is transient",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM learning_items WHERE id = \\?").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErrKind: apperrors.KindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			got, err := repo.Get(context.Background(), "item-1")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrKind != "":
				assert.True(t, apperrors.IsKind(err, tt.wantErrKind))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBItemRepository_FindByContent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("returns nil when missing", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery("SELECT .+ FROM learning_items WHERE owner = \\? AND kind = \\? AND content_ref = \\?").
			WithArgs("user-1", KindQuestionReview, "q-1").
			WillReturnRows(sqlmock.NewRows(itemColumnNames))

		got, err := repo.FindByContent(context.Background(), "user-1", KindQuestionReview, "q-1")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the item", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery("SELECT .+ FROM learning_items WHERE owner = \\? AND kind = \\? AND content_ref = \\?").
			WithArgs("user-1", KindQuestionReview, "q-1").
			WillReturnRows(sqlmock.NewRows(itemColumnNames).
				AddRow("item-1", "user-1", "question_review", "q-1", "Law", now, 1, 2.5, 0, nil, now, now))

		got, err := repo.FindByContent(context.Background(), "user-1", KindQuestionReview, "q-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "item-1", got.ID)
		assert.Nil(t, got.LastOutcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBItemRepository_ListDueBefore(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantLen   int
		wantErr   bool
	}{
		{
			name: "returns due items",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(itemColumnNames).
					AddRow("item-1", "user-1", "question_review", "q-1", "Law", today.AddDate(0, 0, -2), 1, 2.5, 0, false, now, now).
					AddRow("item-2", "user-1", "flashcard", "c-1", "Math", today, 6, 2.6, 2, true, now, now)
				mock.ExpectQuery("SELECT .+ FROM learning_items WHERE owner = \\? AND due_date <= \\? ORDER BY due_date, id").
					WithArgs("user-1", today).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM learning_items").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			got, err := repo.ListDueBefore(context.Background(), "user-1", today)
			if tt.wantErr {
				assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBItemRepository_Upsert(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	item := &Item{
		ID: "item-1", Owner: "user-1", Kind: KindFlashcard, ContentRef: "card-1", Subject: "Math",
		DueDate: due, IntervalDays: 1, EaseFactor: 2.6, ConsecutiveSuccesses: 1,
		LastOutcome: boolPtr(true), CreatedAt: now, UpdatedAt: now,
	}

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "updates an existing item",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE learning_items SET").
					WithArgs("Math", due, 1, 2.6, 1, item.LastOutcome, now, "item-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "inserts when no row was updated",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE learning_items SET").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO learning_items \\(id, owner, kind, content_ref, subject, due_date, interval_days, ease_factor, consecutive_successes, last_outcome, created_at, updated_at\\)").
					WithArgs("item-1", "user-1", KindFlashcard, "card-1", "Math", due, 1, 2.6, 1, item.LastOutcome, now, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "update error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE learning_items SET").
					WillReturnError(fmt.Errorf("deadlock"))
			},
			wantErr: true,
		},
		{
			name: "insert error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE learning_items SET").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO learning_items").
					WillReturnError(fmt.Errorf("duplicate entry"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			err := repo.Upsert(context.Background(), item)
			if tt.wantErr {
				assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBItemRepository_Upsert_StoresCalendarDate(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, brt)
	item := &Item{
		ID: "item-1", Owner: "user-1", Kind: KindQuestionReview, ContentRef: "q-1", Subject: "Physics",
		DueDate: time.Date(2026, 10, 19, 0, 0, 0, 0, brt), IntervalDays: 1, EaseFactor: 2.5,
		CreatedAt: now, UpdatedAt: now,
	}

	repo, mock := newMockRepository(t)
	mock.ExpectExec("UPDATE learning_items SET").
		WithArgs("Physics", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 1, 2.5, 0, item.LastOutcome, now, "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, brt, item.DueDate.Location())
}

func TestDBItemRepository_ListDueBefore_BindsCalendarDate(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)

	repo, mock := newMockRepository(t)
	mock.ExpectQuery("SELECT .+ FROM learning_items WHERE owner = \\? AND due_date <= \\?").
		WithArgs("user-1", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames))

	got, err := repo.ListDueBefore(context.Background(), "user-1", time.Date(2026, 10, 18, 0, 0, 0, 0, brt))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBItemRepository_Upsert_RejectsUnknownKind(t *testing.T) {
	repo, mock := newMockRepository(t)

	err := repo.Upsert(context.Background(), &Item{ID: "item-1", Owner: "user-1", Kind: "essay", ContentRef: "e-1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func boolPtr(b bool) *bool {
	return &b
}
