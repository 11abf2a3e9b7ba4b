package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/learning"
	"github.com/at-ishikawa/studyprep/internal/review"
)

// PrintQueue writes the counts, subject groups and the next items of a review queue.
func PrintQueue(out io.Writer, queue *review.Queue, next []learning.Item) error {
	colors := newPalette()
	_, _ = colors.bold.Fprintf(out, "Review queue for %s\n", queue.ReferenceDate.Format(time.DateOnly))
	_, _ = fmt.Fprintf(out, "Overdue: %s  Due today: %d  Tomorrow: %d  This week: %d\n\n",
		countColor(colors, queue.Counts.Overdue).Sprint(queue.Counts.Overdue),
		queue.Counts.DueToday, queue.Counts.DueTomorrow, queue.Counts.DueThisWeek)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SUBJECT\tOVERDUE\tTODAY\tSCHEDULED\tTOTAL\tMASTERY")
	for _, g := range queue.Subjects {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", g.Subject, g.Overdue, g.DueToday, g.Scheduled, g.Total, g.Mastery)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("w.Flush() > %w", err)
	}

	if len(next) == 0 {
		_, _ = fmt.Fprintln(out, "\nNothing to review.")
		return nil
	}
	_, _ = fmt.Fprintf(out, "\nNext %d items:\n", len(next))
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSUBJECT\tDUE\tEASE")
	for _, item := range next {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", item.ID, item.Kind, item.Subject, item.DueDate.Format(time.DateOnly), item.EaseFactor)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("w.Flush() > %w", err)
	}
	return nil
}

// PrintSummary writes the score and per-subject accuracy of a session.
func PrintSummary(out io.Writer, session *assessment.Session, summary assessment.Summary) error {
	colors := newPalette()
	_, _ = colors.bold.Fprintf(out, "%s (%s)\n", session.Title, session.Status)
	_, _ = fmt.Fprintf(out, "Score: %s  Correct: %d  Incorrect: %d  Unanswered: %d  Flagged: %d\n",
		scoreColor(colors, summary.Score).Sprintf("%.2f%%", summary.Score),
		summary.Correct, summary.Incorrect, summary.Unanswered, summary.Flagged)
	if len(summary.Subjects) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SUBJECT\tCORRECT\tTOTAL\tACCURACY")
	for _, s := range summary.Subjects {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\n", s.Name, s.Correct, s.Total, s.Accuracy)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("w.Flush() > %w", err)
	}
	return nil
}

// PrintSessions writes one line per session header.
func PrintSessions(out io.Writer, sessions []assessment.Session) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tLIMIT\tSCORE\tCREATED")
	for _, s := range sessions {
		score := "-"
		if s.Score != nil {
			score = fmt.Sprintf("%.2f%%", *s.Score)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%dm\t%s\t%s\n", s.ID, s.Title, s.Status, s.TimeLimitMinutes, score, s.CreatedAt.Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("w.Flush() > %w", err)
	}
	return nil
}

func countColor(colors palette, count int) *color.Color {
	if count > 0 {
		return colors.red
	}
	return colors.green
}

func scoreColor(colors palette, score float64) *color.Color {
	switch {
	case score >= 70:
		return colors.green
	case score >= 50:
		return colors.yellow
	default:
		return colors.red
	}
}
