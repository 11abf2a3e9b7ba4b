// Package report renders finalized assessment sessions as Markdown and PDF.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/content"
)

//go:embed templates/session-report.md.go.tmpl
var fallbackSessionTemplate string

const fallbackTemplateName = "session-report.md.go.tmpl"

// Result labels of an item in a report.
const (
	ResultCorrect    = "correct"
	ResultIncorrect  = "incorrect"
	ResultUnanswered = "unanswered"
)

// SessionReport is the data passed to a session report template.
type SessionReport struct {
	Title            string
	Status           string
	StartedAt        string
	CompletedAt      string
	TimeLimitMinutes int
	Summary          assessment.Summary
	Items            []ItemReport
}

// ItemReport is one question of the session with the user's answer.
type ItemReport struct {
	Order          int
	Subject        string
	Statement      string
	Options        []content.Option
	Answer         string
	CorrectOption  string
	Explanation    string
	Result         string
	Flagged        bool
	ElapsedSeconds int
}

// NewSessionReport builds the template data of a session.
func NewSessionReport(s *assessment.Session, questions map[string]content.Question) SessionReport {
	r := SessionReport{
		Title:            s.Title,
		Status:           string(s.Status),
		StartedAt:        formatTime(s.StartedAt),
		CompletedAt:      formatTime(s.CompletedAt),
		TimeLimitMinutes: s.TimeLimitMinutes,
		Summary:          assessment.Summarize(s, questions),
		Items:            make([]ItemReport, 0, len(s.Items)),
	}

	for _, item := range s.Items {
		q := questions[item.QuestionID]
		ir := ItemReport{
			Order:         item.Order,
			Subject:       q.SubjectName,
			Statement:     q.Statement,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
			Flagged:       item.FlaggedForReview,
			Answer:        "-",
			Result:        ResultUnanswered,
		}
		if ir.Statement == "" {
			ir.Statement = fmt.Sprintf("Question %s is no longer available.", item.QuestionID)
		}
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) != "" {
				ir.Options = append(ir.Options, o)
			}
		}
		if item.Answered() {
			ir.Answer = *item.UserAnswer
			ir.Result = ResultIncorrect
			if item.IsCorrect != nil && *item.IsCorrect {
				ir.Result = ResultCorrect
			}
		}
		if item.ElapsedSeconds != nil {
			ir.ElapsedSeconds = *item.ElapsedSeconds
		}
		r.Items = append(r.Items, ir)
	}
	return r
}

// ParseTemplate parses the template at templatePath, falling back to the embedded one
// when the file is missing or invalid.
func ParseTemplate(templatePath string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"percent": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v)
		},
	}

	if _, err := os.Stat(templatePath); err == nil {
		tmpl, err := template.New(filepath.Base(templatePath)).
			Funcs(funcMap).
			ParseFiles(templatePath)
		if err == nil {
			return tmpl, nil
		}
		slog.Warn("failed to parse a report template",
			slog.String("templatePath", templatePath),
			slog.Any("error", err),
		)
	}

	tmpl, err := template.New(fallbackTemplateName).
		Funcs(funcMap).
		Parse(fallbackSessionTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// WriteSessionReport renders data as Markdown to output.
func WriteSessionReport(output io.Writer, templatePath string, data SessionReport) error {
	tmpl, err := ParseTemplate(templatePath)
	if err != nil {
		return fmt.Errorf("ParseTemplate() > %w", err)
	}
	if err := tmpl.Execute(output, data); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04 MST")
}
