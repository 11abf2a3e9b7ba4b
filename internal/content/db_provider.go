package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

const questionColumns = "id, source_id, subject_id, subject_name, difficulty, statement, option_a, option_b, option_c, option_d, option_e, correct_option, explanation, status"

var optionLabels = []string{"A", "B", "C", "D", "E"}

type questionRow struct {
	ID            string         `db:"id"`
	SourceID      string         `db:"source_id"`
	SubjectID     string         `db:"subject_id"`
	SubjectName   string         `db:"subject_name"`
	Difficulty    string         `db:"difficulty"`
	Statement     string         `db:"statement"`
	OptionA       sql.NullString `db:"option_a"`
	OptionB       sql.NullString `db:"option_b"`
	OptionC       sql.NullString `db:"option_c"`
	OptionD       sql.NullString `db:"option_d"`
	OptionE       sql.NullString `db:"option_e"`
	CorrectOption string         `db:"correct_option"`
	Explanation   sql.NullString `db:"explanation"`
	Status        string         `db:"status"`
}

func (r questionRow) toQuestion() Question {
	var options []Option
	for i, text := range []sql.NullString{r.OptionA, r.OptionB, r.OptionC, r.OptionD, r.OptionE} {
		if text.Valid && text.String != "" {
			options = append(options, Option{Label: optionLabels[i], Text: text.String})
		}
	}
	return Question{
		ID:            r.ID,
		SourceID:      r.SourceID,
		SubjectID:     r.SubjectID,
		SubjectName:   r.SubjectName,
		Difficulty:    r.Difficulty,
		Statement:     r.Statement,
		Options:       options,
		CorrectOption: r.CorrectOption,
		Explanation:   r.Explanation.String,
		Status:        r.Status,
	}
}

// DBProvider reads questions from the questions table.
type DBProvider struct {
	db *sqlx.DB
}

// NewDBProvider creates a new DBProvider.
func NewDBProvider(db *sqlx.DB) *DBProvider {
	return &DBProvider{db: db}
}

// FetchCandidates returns active questions matching filters ordered by ID.
func (p *DBProvider) FetchCandidates(ctx context.Context, filters Filters) ([]Question, error) {
	conditions := []string{"status = ?"}
	args := []any{StatusActive}
	if filters.SourceID != "" {
		conditions = append(conditions, "source_id = ?")
		args = append(args, filters.SourceID)
	}
	if len(filters.SubjectIDs) > 0 {
		conditions = append(conditions, "subject_id IN (?)")
		args = append(args, filters.SubjectIDs)
	}
	if filters.Difficulty != "" {
		conditions = append(conditions, "difficulty = ?")
		args = append(args, filters.Difficulty)
	}

	query, args, err := sqlx.In("SELECT "+questionColumns+" FROM questions WHERE "+strings.Join(conditions, " AND ")+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("sqlx.In(questions) > %w", err)
	}
	return p.selectQuestions(ctx, "fetch candidates", query, args)
}

// GetQuestions returns the questions with ids.
func (p *DBProvider) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+questionColumns+" FROM questions WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("sqlx.In(questions) > %w", err)
	}
	return p.selectQuestions(ctx, "get questions", query, args)
}

func (p *DBProvider) selectQuestions(ctx context.Context, op, query string, args []any) ([]Question, error) {
	var rows []questionRow
	if err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...); err != nil {
		return nil, apperrors.Transient(op, fmt.Errorf("db.SelectContext(questions) > %w", err))
	}
	questions := make([]Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}
