package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

// RESTProvider reads questions from a hosted PostgREST-style table endpoint.
type RESTProvider struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
	retryDelay       time.Duration
}

// NewRESTProvider creates a provider for baseURL authenticated with apiKey.
func NewRESTProvider(baseURL, apiKey string, timeout time.Duration, retryAttempts uint) *RESTProvider {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("apikey", apiKey)
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &RESTProvider{
		httpClient:       client,
		maxRetryAttempts: retryAttempts,
		retryDelay:       200 * time.Millisecond,
	}
}

// Close releases the underlying HTTP client.
func (p *RESTProvider) Close() error {
	return p.httpClient.Close()
}

type questionPayload struct {
	ID            string  `json:"id"`
	SourceID      string  `json:"source_id"`
	SubjectID     string  `json:"subject_id"`
	SubjectName   string  `json:"subject_name"`
	Difficulty    string  `json:"difficulty"`
	Statement     string  `json:"statement"`
	OptionA       *string `json:"option_a"`
	OptionB       *string `json:"option_b"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	OptionE       *string `json:"option_e"`
	CorrectOption string  `json:"correct_option"`
	Explanation   *string `json:"explanation"`
	Status        string  `json:"status"`
}

func (p questionPayload) toQuestion() Question {
	var options []Option
	for i, text := range []*string{p.OptionA, p.OptionB, p.OptionC, p.OptionD, p.OptionE} {
		if text != nil && *text != "" {
			options = append(options, Option{Label: optionLabels[i], Text: *text})
		}
	}
	var explanation string
	if p.Explanation != nil {
		explanation = *p.Explanation
	}
	return Question{
		ID:            p.ID,
		SourceID:      p.SourceID,
		SubjectID:     p.SubjectID,
		SubjectName:   p.SubjectName,
		Difficulty:    p.Difficulty,
		Statement:     p.Statement,
		Options:       options,
		CorrectOption: p.CorrectOption,
		Explanation:   explanation,
		Status:        p.Status,
	}
}

// FetchCandidates returns active questions matching filters.
func (p *RESTProvider) FetchCandidates(ctx context.Context, filters Filters) ([]Question, error) {
	params := map[string]string{
		"select": "*",
		"status": "eq." + StatusActive,
		"order":  "id.asc",
	}
	if filters.SourceID != "" {
		params["source_id"] = "eq." + filters.SourceID
	}
	if len(filters.SubjectIDs) > 0 {
		params["subject_id"] = "in.(" + strings.Join(filters.SubjectIDs, ",") + ")"
	}
	if filters.Difficulty != "" {
		params["difficulty"] = "eq." + filters.Difficulty
	}
	return p.fetch(ctx, "fetch candidates", params)
}

// GetQuestions returns the questions with ids.
func (p *RESTProvider) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return p.fetch(ctx, "get questions", map[string]string{
		"select": "*",
		"id":     "in.(" + strings.Join(ids, ",") + ")",
		"order":  "id.asc",
	})
}

type responseError struct {
	statusCode int
	body       string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.statusCode, e.body)
}

func (p *RESTProvider) fetch(ctx context.Context, op string, params map[string]string) ([]Question, error) {
	var payload []questionPayload
	if err := retry.Do(
		func() error {
			payload = nil
			err := p.get(ctx, params, &payload)
			if err != nil && !isRetryableError(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.Delay(p.retryDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return nil, apperrors.Transient(op, err)
	}

	questions := make([]Question, 0, len(payload))
	for _, q := range payload {
		questions = append(questions, q.toQuestion())
	}
	return questions, nil
}

func (p *RESTProvider) get(ctx context.Context, params map[string]string, result *[]questionPayload) error {
	response, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get("/questions")
	if err != nil {
		return fmt.Errorf("httpClient.Get(/questions) > %w", err)
	}
	if response.IsError() {
		return &responseError{statusCode: response.StatusCode(), body: response.String()}
	}
	return nil
}

// isRetryableError retries transport failures, rate limiting and server errors.
func isRetryableError(err error) bool {
	var respErr *responseError
	if errors.As(err, &respErr) {
		return respErr.statusCode == http.StatusTooManyRequests || respErr.statusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
