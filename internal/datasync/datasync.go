// Package datasync imports and exports the question pool as YAML question banks.
package datasync

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/at-ishikawa/studyprep/internal/content"
)

//go:generate mockgen -source=datasync.go -destination=../mocks/datasync/mock_datasync.go -package=mock_datasync

// QuestionRepository writes to the question pool.
type QuestionRepository interface {
	Find(ctx context.Context, id string) (*content.Question, error)
	Create(ctx context.Context, q *content.Question) error
	Update(ctx context.Context, q *content.Question) error
}

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	New       int
	Skipped   int
	Updated   int
	Unchanged int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer writes question bank entries to the question pool.
type Importer struct {
	repo   QuestionRepository
	writer io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(repo QuestionRepository, writer io.Writer) *Importer {
	return &Importer{repo: repo, writer: writer}
}

// ImportQuestions creates new questions and, with UpdateExisting, overwrites changed ones.
// Each question is reported on the writer as NEW, SKIP, UPDATE or SAME.
func (imp *Importer) ImportQuestions(ctx context.Context, questions []content.Question, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	for i := range questions {
		q := &questions[i]
		existing, err := imp.repo.Find(ctx, q.ID)
		if err != nil {
			return &result, fmt.Errorf("repo.Find(%s) > %w", q.ID, err)
		}

		switch {
		case existing == nil:
			if !opts.DryRun {
				if err := imp.repo.Create(ctx, q); err != nil {
					return &result, fmt.Errorf("repo.Create(%s) > %w", q.ID, err)
				}
			}
			_, _ = fmt.Fprintf(imp.writer, "  [NEW]  %s\n", q.ID)
			result.New++
		case reflect.DeepEqual(normalize(*existing), normalize(*q)):
			_, _ = fmt.Fprintf(imp.writer, "  [SAME]  %s\n", q.ID)
			result.Unchanged++
		case !opts.UpdateExisting:
			_, _ = fmt.Fprintf(imp.writer, "  [SKIP]  %s\n", q.ID)
			result.Skipped++
		default:
			if !opts.DryRun {
				if err := imp.repo.Update(ctx, q); err != nil {
					return &result, fmt.Errorf("repo.Update(%s) > %w", q.ID, err)
				}
			}
			_, _ = fmt.Fprintf(imp.writer, "  [UPDATE]  %s\n", q.ID)
			result.Updated++
		}
	}
	return &result, nil
}

func normalize(q content.Question) content.Question {
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return q
}

// ExportQuestions writes the active questions matching filters as a question bank.
// It returns the number of exported questions.
func ExportQuestions(ctx context.Context, provider content.Provider, filters content.Filters, w io.Writer) (int, error) {
	questions, err := provider.FetchCandidates(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("provider.FetchCandidates() > %w", err)
	}
	if err := WriteQuestionBank(w, questions); err != nil {
		return 0, err
	}
	return len(questions), nil
}
