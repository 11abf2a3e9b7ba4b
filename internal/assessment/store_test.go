package assessment

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
	"github.com/at-ishikawa/studyprep/internal/testutil"
)

func newMockStore(t *testing.T) (*DBStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDBStore(sqlx.NewDb(db, "mysql")), mock
}

func TestDBStore_Get(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("loads header and ordered items", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .+ FROM assessment_sessions WHERE id = \\?").
			WithArgs("session-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "title", "status", "time_limit_minutes", "started_at", "completed_at", "score", "created_at"}).
				AddRow("session-1", "user-1", "Mock", "in_progress", 60, created, nil, nil, created))
		mock.ExpectQuery("SELECT .+ FROM assessment_items WHERE session_id = \\? ORDER BY item_order").
			WithArgs("session-1").
			WillReturnRows(sqlmock.NewRows([]string{"item_order", "question_id", "user_answer", "elapsed_seconds", "flagged_for_review", "is_correct"}).
				AddRow(1, "q1", "A", 30, false, nil).
				AddRow(2, "q2", nil, nil, true, nil))

		got, err := store.Get(context.Background(), "session-1")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, got.Status)
		assert.Equal(t, created, *got.StartedAt)
		assert.Nil(t, got.CompletedAt)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "A", *got.Items[0].UserAnswer)
		assert.Equal(t, 30, *got.Items[0].ElapsedSeconds)
		assert.Nil(t, got.Items[1].UserAnswer)
		assert.True(t, got.Items[1].FlaggedForReview)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .+ FROM assessment_sessions WHERE id = \\?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query failure is transient", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .+ FROM assessment_sessions").
			WillReturnError(fmt.Errorf("connection refused"))

		_, err := store.Get(context.Background(), "session-1")
		assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
	})
}

func TestDBStore_CreateItems(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assessment_items \\(session_id, item_order, question_id, user_answer, elapsed_seconds, flagged_for_review, is_correct\\) VALUES \\(\\?, \\?, \\?, \\?, \\?, \\?, \\?\\), \\(\\?, \\?, \\?, \\?, \\?, \\?, \\?\\)").
		WithArgs("session-1", 1, "q1", nil, nil, false, nil, "session-1", 2, "q2", nil, nil, false, nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.CreateItems(context.Background(), "session-1", []Item{
		{Order: 1, QuestionID: "q1"},
		{Order: 2, QuestionID: "q2"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_SaveResult_RollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assessment_items SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE assessment_sessions SET").
		WillReturnError(fmt.Errorf("deadlock"))
	mock.ExpectRollback()

	session := &Session{ID: "session-1", Status: StatusCompleted, Items: []Item{{Order: 1, QuestionID: "q1"}}}
	err := store.SaveResult(context.Background(), session)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)

	store := NewDBStore(db)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	session := &Session{
		ID: "session-1", Owner: "user-1", Title: "Mock", Status: StatusNotStarted,
		TimeLimitMinutes: 60, CreatedAt: created,
		Items: []Item{{Order: 1, QuestionID: "q1"}, {Order: 2, QuestionID: "q2"}, {Order: 3, QuestionID: "q3"}},
	}
	require.NoError(t, store.CreateSession(ctx, session))
	require.NoError(t, store.CreateItems(ctx, session.ID, session.Items))

	changed, err := session.Start(created.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, store.UpdateStatus(ctx, session))

	require.NoError(t, session.RecordAnswer(1, "A", 20))
	require.NoError(t, session.RecordAnswer(2, "C", 35))
	_, err = session.ToggleFlag(3)
	require.NoError(t, err)
	require.NoError(t, store.UpdateItems(ctx, session.ID, session.Items))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(created.Add(time.Minute)))
	require.Len(t, got.Items, 3)
	assert.Equal(t, "A", *got.Items[0].UserAnswer)
	assert.Equal(t, 35, *got.Items[1].ElapsedSeconds)
	assert.True(t, got.Items[2].FlaggedForReview)

	score := 50.0
	completed := created.Add(30 * time.Minute)
	got.Status = StatusCompleted
	got.CompletedAt = &completed
	got.Score = &score
	correct, wrong := true, false
	got.Items[0].IsCorrect = &correct
	got.Items[1].IsCorrect = &wrong
	got.Items[2].IsCorrect = &wrong
	require.NoError(t, store.SaveResult(ctx, got))

	sessions, err := store.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, StatusCompleted, sessions[0].Status)
	assert.Equal(t, 50.0, *sessions[0].Score)
	assert.Empty(t, sessions[0].Items)

	reloaded, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, *reloaded.Items[0].IsCorrect)
	assert.False(t, *reloaded.Items[2].IsCorrect)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
