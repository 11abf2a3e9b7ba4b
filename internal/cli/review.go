package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/at-ishikawa/studyprep/internal/content"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/scheduler"
)

// Grader applies grading events to learning items. learning.Service implements it.
type Grader interface {
	Grade(ctx context.Context, owner, id string, grade scheduler.Grade) (*learning.Item, error)
}

// ReviewResult counts the outcome of a review run.
type ReviewResult struct {
	Reviewed int
	Passed   int
	Skipped  int
}

// ReviewCLI walks through due items and grades each answer.
type ReviewCLI struct {
	in       io.Reader
	out      io.Writer
	grader   Grader
	provider content.Provider
	colors   palette
}

// NewReviewCLI creates a new ReviewCLI.
func NewReviewCLI(in io.Reader, out io.Writer, grader Grader, provider content.Provider) *ReviewCLI {
	return &ReviewCLI{in: in, out: out, grader: grader, provider: provider, colors: newPalette()}
}

// Study reviews items in order until they run out, input ends, or the user enters q.
func (c *ReviewCLI) Study(ctx context.Context, owner string, items []learning.Item) (ReviewResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, c.in)

	questions, err := c.loadQuestions(ctx, items)
	if err != nil {
		return ReviewResult{}, err
	}

	var result ReviewResult
	for i, item := range items {
		_, _ = fmt.Fprintln(c.out)
		_, _ = c.colors.bold.Fprintf(c.out, "[%d/%d] %s", i+1, len(items), item.Subject)
		_, _ = c.colors.italic.Fprintf(c.out, " (%s)\n", item.Kind)

		var grade scheduler.Grade
		switch item.Kind {
		case learning.KindQuestionReview:
			q, ok := questions[item.ContentRef]
			if !ok {
				_, _ = c.colors.italic.Fprintf(c.out, "Question %s is no longer available, skipped.\n", item.ContentRef)
				result.Skipped++
				continue
			}
			answer, err := ask(ctx, c, lines, renderQuestion(q)+"Answer (A-E, q to stop): ", parseOption)
			if err != nil {
				return result, stopped(err)
			}
			correct := q.IsCorrect(answer)
			c.printOutcome(correct, q)
			grade = scheduler.Binary(correct)
		default:
			quality, err := ask(ctx, c, lines, item.ContentRef+"\nRecall quality (0-5, q to stop): ", parseQuality)
			if err != nil {
				return result, stopped(err)
			}
			grade = scheduler.Graded(quality)
		}

		updated, err := c.grader.Grade(ctx, owner, item.ID, grade)
		if err != nil {
			return result, fmt.Errorf("grade item(%s): %w", item.ID, err)
		}
		result.Reviewed++
		if grade.Success() {
			result.Passed++
		}
		_, _ = fmt.Fprintf(c.out, "Next review on %s (in %d days).\n", updated.DueDate.Format(time.DateOnly), updated.IntervalDays)
	}
	return result, nil
}

func (c *ReviewCLI) loadQuestions(ctx context.Context, items []learning.Item) (map[string]content.Question, error) {
	var ids []string
	for _, item := range items {
		if item.Kind == learning.KindQuestionReview {
			ids = append(ids, item.ContentRef)
		}
	}
	if len(ids) == 0 || c.provider == nil {
		return map[string]content.Question{}, nil
	}
	questions, err := c.provider.GetQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("provider.GetQuestions() > %w", err)
	}
	return content.Index(questions), nil
}

// ask prompts until parse accepts the input. It returns errEnd on q and io.EOF when input ends.
func ask[T any](ctx context.Context, c *ReviewCLI, lines <-chan string, prompt string, parse func(string) (T, error)) (T, error) {
	var zero T
	for {
		_, _ = fmt.Fprint(c.out, prompt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return zero, io.EOF
			}
			if strings.EqualFold(line, "q") {
				return zero, errEnd
			}
			v, err := parse(line)
			if err == nil {
				return v, nil
			}
			_, _ = c.colors.red.Fprintf(c.out, "%v\n", err)
		}
	}
}

func (c *ReviewCLI) printOutcome(correct bool, q content.Question) {
	if correct {
		_, _ = c.colors.green.Fprintln(c.out, "Correct.")
	} else {
		_, _ = c.colors.red.Fprintf(c.out, "Incorrect. The answer is %s.\n", q.CorrectOption)
	}
	if q.Explanation != "" {
		_, _ = c.colors.italic.Fprintln(c.out, q.Explanation)
	}
}

func renderQuestion(q content.Question) string {
	var b strings.Builder
	b.WriteString(q.Statement)
	b.WriteString("\n")
	for _, o := range q.Options {
		if strings.TrimSpace(o.Text) != "" {
			fmt.Fprintf(&b, "  %s) %s\n", o.Label, o.Text)
		}
	}
	return b.String()
}

func parseOption(s string) (string, error) {
	s = strings.ToUpper(s)
	if len(s) != 1 || s[0] < 'A' || s[0] > 'E' {
		return "", fmt.Errorf("enter one of A-E, got %q", s)
	}
	return s, nil
}

func parseQuality(s string) (int, error) {
	quality, err := strconv.Atoi(s)
	if err != nil || quality < scheduler.MinQuality || quality > scheduler.MaxQuality {
		return 0, fmt.Errorf("enter a number between %d and %d, got %q", scheduler.MinQuality, scheduler.MaxQuality, s)
	}
	return quality, nil
}

// stopped turns a user stop or end of input into a clean return.
func stopped(err error) error {
	if errors.Is(err, errEnd) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
