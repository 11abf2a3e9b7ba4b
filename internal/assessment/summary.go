package assessment

import (
	"sort"

	"github.com/at-ishikawa/studyprep/internal/content"
)

// SubjectResult is the accuracy of one subject within a session.
type SubjectResult struct {
	SubjectID string  `json:"subjectId"`
	Name      string  `json:"name"`
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// Summary aggregates the outcome of a session.
type Summary struct {
	Total      int             `json:"total"`
	Answered   int             `json:"answered"`
	Correct    int             `json:"correct"`
	Incorrect  int             `json:"incorrect"`
	Unanswered int             `json:"unanswered"`
	Flagged    int             `json:"flagged"`
	Score      float64         `json:"score"`
	Subjects   []SubjectResult `json:"subjects"`
}

// Summarize counts the items of a finalized session. Subjects are ordered by name.
func Summarize(s *Session, questions map[string]content.Question) Summary {
	summary := Summary{Total: len(s.Items)}
	subjects := make(map[string]*SubjectResult)

	for _, item := range s.Items {
		correct := item.IsCorrect != nil && *item.IsCorrect
		switch {
		case !item.Answered():
			summary.Unanswered++
		case correct:
			summary.Answered++
			summary.Correct++
		default:
			summary.Answered++
			summary.Incorrect++
		}
		if item.FlaggedForReview {
			summary.Flagged++
		}

		q := questions[item.QuestionID]
		result, ok := subjects[q.SubjectID]
		if !ok {
			result = &SubjectResult{SubjectID: q.SubjectID, Name: q.SubjectName}
			subjects[q.SubjectID] = result
		}
		result.Total++
		if correct {
			result.Correct++
		}
	}

	if s.Score != nil {
		summary.Score = *s.Score
	} else {
		summary.Score = ScorePercent(summary.Correct, summary.Total)
	}

	for _, result := range subjects {
		result.Accuracy = ScorePercent(result.Correct, result.Total)
		summary.Subjects = append(summary.Subjects, *result)
	}
	sort.Slice(summary.Subjects, func(i, j int) bool {
		if summary.Subjects[i].Name != summary.Subjects[j].Name {
			return summary.Subjects[i].Name < summary.Subjects[j].Name
		}
		return summary.Subjects[i].SubjectID < summary.Subjects[j].SubjectID
	})
	return summary
}
