package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

func strPtr(s string) *string {
	return &s
}

func newTestRESTProvider(t *testing.T, handler http.HandlerFunc) *RESTProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewRESTProvider(server.URL, "test-key", 5*time.Second, 2)
	provider.retryDelay = time.Millisecond
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestRESTProvider_FetchCandidates(t *testing.T) {
	provider := newTestRESTProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/questions", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		query := r.URL.Query()
		assert.Equal(t, "eq.active", query.Get("status"))
		assert.Equal(t, "eq.src-1", query.Get("source_id"))
		assert.Equal(t, "in.(law,math)", query.Get("subject_id"))
		assert.Equal(t, "eq.medium", query.Get("difficulty"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode([]questionPayload{
			{
				ID: "q1", SourceID: "src-1", SubjectID: "law", Statement: "S1",
				OptionA: strPtr("Certo"), OptionB: strPtr("Errado"), OptionC: strPtr(""),
				CorrectOption: "B", Explanation: strPtr("Why"), Status: "active",
			},
		}))
	})

	got, err := provider.FetchCandidates(context.Background(), Filters{
		SourceID:   "src-1",
		SubjectIDs: []string{"law", "math"},
		Difficulty: "medium",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, []Option{{Label: "A", Text: "Certo"}, {Label: "B", Text: "Errado"}}, got[0].Options)
	assert.Equal(t, "Why", got[0].Explanation)
	assert.True(t, got[0].IsBinaryStyle())
}

func TestRESTProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	provider := newTestRESTProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"q1","statement":"S1","option_a":"x","option_b":"y","correct_option":"A","status":"active"}]`))
	})

	got, err := provider.GetQuestions(context.Background(), []string{"q1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRESTProvider_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	provider := newTestRESTProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	})

	_, err := provider.FetchCandidates(context.Background(), Filters{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransient))
	assert.Contains(t, err.Error(), "response error 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRESTProvider_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	provider := newTestRESTProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := provider.FetchCandidates(context.Background(), Filters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response error 500")
	assert.Equal(t, int32(3), calls.Load())
}

func TestRESTProvider_GetQuestionsEmpty(t *testing.T) {
	provider := newTestRESTProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	got, err := provider.GetQuestions(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
