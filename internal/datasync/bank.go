package datasync

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/studyprep/internal/content"
)

var optionLabels = []string{"A", "B", "C", "D", "E"}

// QuestionBank is the YAML file format of a question pool.
type QuestionBank struct {
	Questions []BankQuestion `yaml:"questions"`
}

// BankQuestion lists options in order; they are labeled A to E.
type BankQuestion struct {
	ID          string   `yaml:"id"`
	Source      string   `yaml:"source,omitempty"`
	SubjectID   string   `yaml:"subject_id,omitempty"`
	Subject     string   `yaml:"subject,omitempty"`
	Difficulty  string   `yaml:"difficulty,omitempty"`
	Statement   string   `yaml:"statement"`
	Options     []string `yaml:"options"`
	Answer      string   `yaml:"answer"`
	Explanation string   `yaml:"explanation,omitempty"`
	Status      string   `yaml:"status,omitempty"`
}

// ReadQuestionBank decodes and validates a question bank.
// Every invalid question is reported in the returned error.
func ReadQuestionBank(r io.Reader) ([]content.Question, error) {
	var bank QuestionBank
	if err := yaml.NewDecoder(r).Decode(&bank); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yaml.Decode() > %w", err)
	}

	var (
		questions []content.Question
		errs      []error
		seen      = make(map[string]bool, len(bank.Questions))
	)
	for i, bq := range bank.Questions {
		if err := bq.validate(); err != nil {
			errs = append(errs, fmt.Errorf("questions[%d]: %w", i, err))
			continue
		}
		if seen[bq.ID] {
			errs = append(errs, fmt.Errorf("questions[%d]: duplicate id %q", i, bq.ID))
			continue
		}
		seen[bq.ID] = true
		questions = append(questions, bq.toQuestion())
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return questions, nil
}

// WriteQuestionBank encodes questions in the format read by ReadQuestionBank.
func WriteQuestionBank(w io.Writer, questions []content.Question) error {
	bank := QuestionBank{Questions: make([]BankQuestion, 0, len(questions))}
	for _, q := range questions {
		bank.Questions = append(bank.Questions, fromQuestion(q))
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(bank); err != nil {
		return fmt.Errorf("yaml.Encode() > %w", err)
	}
	return encoder.Close()
}

func (bq BankQuestion) validate() error {
	switch {
	case strings.TrimSpace(bq.ID) == "":
		return errors.New("id is required")
	case strings.TrimSpace(bq.Statement) == "":
		return fmt.Errorf("%s: statement is required", bq.ID)
	case len(bq.Options) < 2 || len(bq.Options) > len(optionLabels):
		return fmt.Errorf("%s: between 2 and %d options are required, got %d", bq.ID, len(optionLabels), len(bq.Options))
	}
	labels := optionLabels[:len(bq.Options)]
	for i, label := range labels {
		if bq.Answer != label {
			continue
		}
		if strings.TrimSpace(bq.Options[i]) == "" {
			return fmt.Errorf("%s: answer %s is an empty option", bq.ID, label)
		}
		return nil
	}
	return fmt.Errorf("%s: answer %q is not one of %s", bq.ID, bq.Answer, strings.Join(labels, ", "))
}

func (bq BankQuestion) toQuestion() content.Question {
	options := make([]content.Option, 0, len(bq.Options))
	for i, text := range bq.Options {
		if strings.TrimSpace(text) == "" {
			continue
		}
		options = append(options, content.Option{Label: optionLabels[i], Text: text})
	}
	status := bq.Status
	if status == "" {
		status = content.StatusActive
	}
	return content.Question{
		ID:            bq.ID,
		SourceID:      bq.Source,
		SubjectID:     bq.SubjectID,
		SubjectName:   bq.Subject,
		Difficulty:    bq.Difficulty,
		Statement:     bq.Statement,
		Options:       options,
		CorrectOption: bq.Answer,
		Explanation:   bq.Explanation,
		Status:        status,
	}
}

// fromQuestion keeps option positions, leaving gaps for missing labels.
func fromQuestion(q content.Question) BankQuestion {
	texts := make(map[string]string, len(q.Options))
	last := -1
	for _, o := range q.Options {
		for i, label := range optionLabels {
			if o.Label == label {
				texts[label] = o.Text
				last = max(last, i)
			}
		}
	}
	options := make([]string, 0, last+1)
	for _, label := range optionLabels[:last+1] {
		options = append(options, texts[label])
	}

	return BankQuestion{
		ID:          q.ID,
		Source:      q.SourceID,
		SubjectID:   q.SubjectID,
		Subject:     q.SubjectName,
		Difficulty:  q.Difficulty,
		Statement:   q.Statement,
		Options:     options,
		Answer:      q.CorrectOption,
		Explanation: q.Explanation,
		Status:      q.Status,
	}
}
