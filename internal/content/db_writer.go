package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

// DBWriter maintains the questions table read by DBProvider.
type DBWriter struct {
	db *sqlx.DB
}

// NewDBWriter creates a new DBWriter.
func NewDBWriter(db *sqlx.DB) *DBWriter {
	return &DBWriter{db: db}
}

// Find returns the question with id, or nil when there is none. Inactive questions are included.
func (w *DBWriter) Find(ctx context.Context, id string) (*Question, error) {
	var row questionRow
	err := w.db.GetContext(ctx, &row, w.db.Rebind("SELECT "+questionColumns+" FROM questions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Transient("find question", fmt.Errorf("db.GetContext(%s) > %w", id, err))
	}
	q := row.toQuestion()
	return &q, nil
}

// Create inserts q.
func (w *DBWriter) Create(ctx context.Context, q *Question) error {
	query := "INSERT INTO questions (" + questionColumns + ") VALUES (:id, :source_id, :subject_id, :subject_name, :difficulty, :statement, :option_a, :option_b, :option_c, :option_d, :option_e, :correct_option, :explanation, :status)"
	if _, err := w.db.NamedExecContext(ctx, query, fromQuestion(q)); err != nil {
		return apperrors.Transient("create question", fmt.Errorf("db.NamedExecContext(%s) > %w", q.ID, err))
	}
	return nil
}

// Update overwrites every column of the question with q.ID.
func (w *DBWriter) Update(ctx context.Context, q *Question) error {
	query := `UPDATE questions SET source_id = :source_id, subject_id = :subject_id, subject_name = :subject_name,
		difficulty = :difficulty, statement = :statement, option_a = :option_a, option_b = :option_b,
		option_c = :option_c, option_d = :option_d, option_e = :option_e, correct_option = :correct_option,
		explanation = :explanation, status = :status WHERE id = :id`
	if _, err := w.db.NamedExecContext(ctx, query, fromQuestion(q)); err != nil {
		return apperrors.Transient("update question", fmt.Errorf("db.NamedExecContext(%s) > %w", q.ID, err))
	}
	return nil
}

func fromQuestion(q *Question) questionRow {
	row := questionRow{
		ID:            q.ID,
		SourceID:      q.SourceID,
		SubjectID:     q.SubjectID,
		SubjectName:   q.SubjectName,
		Difficulty:    q.Difficulty,
		Statement:     q.Statement,
		CorrectOption: q.CorrectOption,
		Explanation:   sql.NullString{String: q.Explanation, Valid: q.Explanation != ""},
		Status:        q.Status,
	}
	columns := map[string]*sql.NullString{
		"A": &row.OptionA,
		"B": &row.OptionB,
		"C": &row.OptionC,
		"D": &row.OptionD,
		"E": &row.OptionE,
	}
	for _, o := range q.Options {
		if column, ok := columns[o.Label]; ok {
			*column = sql.NullString{String: o.Text, Valid: true}
		}
	}
	return row
}
