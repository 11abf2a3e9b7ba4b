package assessment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/assessment"
	mock_assessment "github.com/at-ishikawa/studyprep/internal/mocks/assessment"
)

const (
	tickInterval     = time.Second
	autosaveInterval = 30 * time.Second
)

// manualTickers hands out tickers whose channels are driven by the test.
type manualTickers struct {
	tick     chan time.Time
	autosave chan time.Time
}

func newManualTickers(t *testing.T, ctrl *gomock.Controller) (*manualTickers, func(time.Duration) assessment.Ticker) {
	t.Helper()
	m := &manualTickers{tick: make(chan time.Time), autosave: make(chan time.Time)}
	return m, func(d time.Duration) assessment.Ticker {
		ch := m.tick
		if d == autosaveInterval {
			ch = m.autosave
		}
		ticker := mock_assessment.NewMockTicker(ctrl)
		ticker.EXPECT().C().Return((<-chan time.Time)(ch)).AnyTimes()
		ticker.EXPECT().Stop().Times(1)
		return ticker
	}
}

// fakeBackend records calls from concurrent autosaves.
type fakeBackend struct {
	mu        sync.Mutex
	saves     [][]assessment.Item
	saveErrs  []error
	finalized int
	saved     chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{saved: make(chan struct{}, 10)}
}

func (b *fakeBackend) SaveProgress(_ context.Context, _, _ string, items []assessment.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves = append(b.saves, items)
	var err error
	if len(b.saveErrs) > 0 {
		err, b.saveErrs = b.saveErrs[0], b.saveErrs[1:]
	}
	b.saved <- struct{}{}
	return err
}

func (b *fakeBackend) Finalize(_ context.Context, owner, id string) (*assessment.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized++
	score := 0.0
	return &assessment.Session{ID: id, Owner: owner, Status: assessment.StatusCompleted, Score: &score}, nil
}

func (b *fakeBackend) saveCalls() [][]assessment.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]assessment.Item(nil), b.saves...)
}

func (b *fakeBackend) finalizeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized
}

func runnerConfig(newTicker func(time.Duration) assessment.Ticker) assessment.RunnerConfig {
	return assessment.RunnerConfig{
		TickInterval:     tickInterval,
		AutosaveInterval: autosaveInterval,
		SaveAttempts:     2,
		SaveRetryDelay:   time.Millisecond,
		NewTicker:        newTicker,
	}
}

// sessionWithRemaining returns a running session that has left of its 60 minutes at now.
func sessionWithRemaining(left time.Duration) *assessment.Session {
	return inProgress(3, now.Add(-60*time.Minute+left), 60)
}

func runAsync(ctx context.Context, runner *assessment.Runner) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
		return nil
	}
}

func waitSaved(t *testing.T, b *fakeBackend) {
	t.Helper()
	select {
	case <-b.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("autosave did not happen")
	}
}

func TestNewRunner_RequiresInProgress(t *testing.T) {
	session := inProgress(3, now, 60)
	session.Status = assessment.StatusNotStarted
	_, err := assessment.NewRunner(newFakeBackend(), session, now, assessment.RunnerConfig{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
}

func TestRunner_FinalizesOnceWhenTimeIsUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	tickers, newTicker := newManualTickers(t, ctrl)
	backend := newFakeBackend()

	runner, err := assessment.NewRunner(backend, sessionWithRemaining(2*time.Second), now, runnerConfig(newTicker))
	require.NoError(t, err)
	require.NoError(t, runner.Answer(1, "A", 5))

	errCh := runAsync(context.Background(), runner)
	tickers.tick <- now
	tickers.tick <- now

	require.NoError(t, waitErr(t, errCh))
	<-runner.Done()
	assert.Equal(t, 1, backend.finalizeCalls())
	require.Len(t, backend.saveCalls(), 1)
	assert.Equal(t, 1, backend.saveCalls()[0][0].Order)

	result, err := runner.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusCompleted, result.Status)
	assert.Same(t, result, runner.Result())
	assert.Equal(t, 1, backend.finalizeCalls())

	err = runner.Answer(2, "B", 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
	_, err = runner.ToggleFlag(2)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict))
}

func TestRunner_AutosavesChangedItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	tickers, newTicker := newManualTickers(t, ctrl)
	backend := newFakeBackend()

	runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Hour), now, runnerConfig(newTicker))
	require.NoError(t, err)
	require.NoError(t, runner.Answer(2, "C", 15))
	flagged, err := runner.ToggleFlag(3)
	require.NoError(t, err)
	assert.True(t, flagged)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, runner)
	tickers.autosave <- now
	waitSaved(t, backend)

	cancel()
	assert.ErrorIs(t, waitErr(t, errCh), context.Canceled)

	saves := backend.saveCalls()
	require.Len(t, saves, 1)
	require.Len(t, saves[0], 2)
	assert.Equal(t, 2, saves[0][0].Order)
	assert.Equal(t, "C", *saves[0][0].UserAnswer)
	assert.Equal(t, 3, saves[0][1].Order)
	assert.True(t, saves[0][1].FlaggedForReview)
	assert.Equal(t, 0, backend.finalizeCalls())
}

func TestRunner_AutosaveFailureIsRetriedOnNextInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	tickers, newTicker := newManualTickers(t, ctrl)
	backend := newFakeBackend()
	backend.saveErrs = []error{errors.New("bad gateway")}

	runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Hour), now, runnerConfig(newTicker))
	require.NoError(t, err)
	require.NoError(t, runner.Answer(1, "D", 8))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, runner)

	tickers.autosave <- now
	waitSaved(t, backend)
	require.Eventually(t, func() bool {
		tickers.autosave <- now
		return len(backend.saveCalls()) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, waitErr(t, errCh), context.Canceled)

	saves := backend.saveCalls()
	require.Len(t, saves, 2)
	assert.Equal(t, saves[0], saves[1])
	assert.Equal(t, "D", *saves[1][0].UserAnswer)
}

func TestRunner_TransientSaveIsRetried(t *testing.T) {
	backend := newFakeBackend()
	backend.saveErrs = []error{apperrors.Transient("update items", errors.New("timeout"))}

	runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Hour), now, runnerConfig(nil))
	require.NoError(t, err)
	require.NoError(t, runner.Answer(1, "A", 3))

	_, err = runner.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, backend.saveCalls(), 2)
	assert.Equal(t, 1, backend.finalizeCalls())
}

func TestRunner_PausedCountdownIgnoresTicks(t *testing.T) {
	ctrl := gomock.NewController(t)
	tickers, newTicker := newManualTickers(t, ctrl)
	backend := newFakeBackend()

	runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Second), now, runnerConfig(newTicker))
	require.NoError(t, err)
	require.True(t, runner.Pause())
	assert.True(t, runner.Paused())

	errCh := runAsync(context.Background(), runner)
	tickers.tick <- now
	tickers.tick <- now
	assert.Equal(t, time.Second, runner.Remaining())
	assert.Equal(t, 0, backend.finalizeCalls())

	require.True(t, runner.Resume())
	tickers.tick <- now
	require.NoError(t, waitErr(t, errCh))
	assert.Equal(t, 1, backend.finalizeCalls())
}

func TestNewRunner_RemainingTimeIgnoresEarlierPause(t *testing.T) {
	session := sessionWithRemaining(10 * time.Minute)

	paused, err := assessment.NewRunner(newFakeBackend(), session, now, assessment.RunnerConfig{})
	require.NoError(t, err)
	require.True(t, paused.Pause())

	resumed, err := assessment.NewRunner(newFakeBackend(), paused.Snapshot(), now.Add(4*time.Minute), assessment.RunnerConfig{})
	require.NoError(t, err)
	assert.False(t, resumed.Paused())
	assert.Equal(t, 6*time.Minute, resumed.Remaining())
}

func TestRunner_TimeoutFinalizeRetriedOnNextTick(t *testing.T) {
	tests := []struct {
		name      string
		firstErr  error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "transient failure is retried",
			firstErr:  apperrors.Transient("finalize session", errors.New("connection reset")),
			wantCalls: 2,
		},
		{
			name:      "permanent failure stops the runner",
			firstErr:  apperrors.StateConflict("finalize", string(assessment.StatusCompleted)),
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tickers, newTicker := newManualTickers(t, ctrl)
			backend := mock_assessment.NewMockBackend(ctrl)

			calls := []any{
				backend.EXPECT().Finalize(gomock.Any(), "user-1", "session-1").Return(nil, tt.firstErr),
			}
			if tt.wantCalls > 1 {
				calls = append(calls, backend.EXPECT().Finalize(gomock.Any(), "user-1", "session-1").
					Return(&assessment.Session{ID: "session-1", Owner: "user-1", Status: assessment.StatusCompleted}, nil))
			}
			gomock.InOrder(calls...)

			runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Second), now, runnerConfig(newTicker))
			require.NoError(t, err)

			errCh := runAsync(context.Background(), runner)
			tickers.tick <- now
			if tt.wantErr {
				assert.True(t, apperrors.IsKind(waitErr(t, errCh), apperrors.KindStateConflict))
				assert.Nil(t, runner.Result())
				return
			}

			tickers.tick <- now
			require.NoError(t, waitErr(t, errCh))
			<-runner.Done()
			require.NotNil(t, runner.Result())
			assert.Equal(t, assessment.StatusCompleted, runner.Result().Status)
		})
	}
}

func TestRunner_Submit(t *testing.T) {
	t.Run("saves pending answers before finalizing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock_assessment.NewMockBackend(ctrl)
		session := sessionWithRemaining(time.Hour)

		runner, err := assessment.NewRunner(backend, session, now, assessment.RunnerConfig{})
		require.NoError(t, err)
		require.NoError(t, runner.Answer(3, "E", 60))
		require.NoError(t, runner.Answer(1, "A", 10))

		score := 100.0
		gomock.InOrder(
			backend.EXPECT().SaveProgress(gomock.Any(), "user-1", "session-1", gomock.Any()).
				DoAndReturn(func(_ context.Context, _, _ string, items []assessment.Item) error {
					require.Len(t, items, 2)
					assert.Equal(t, 1, items[0].Order)
					assert.Equal(t, 3, items[1].Order)
					return nil
				}),
			backend.EXPECT().Finalize(gomock.Any(), "user-1", "session-1").
				Return(&assessment.Session{ID: "session-1", Owner: "user-1", Status: assessment.StatusCompleted, Score: &score}, nil),
		)

		got, err := runner.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 100.0, *got.Score)
		assert.Equal(t, assessment.StatusCompleted, runner.Snapshot().Status)
	})

	t.Run("failed finalize can be retried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mock_assessment.NewMockBackend(ctrl)

		runner, err := assessment.NewRunner(backend, sessionWithRemaining(time.Hour), now, assessment.RunnerConfig{})
		require.NoError(t, err)

		gomock.InOrder(
			backend.EXPECT().Finalize(gomock.Any(), "user-1", "session-1").Return(nil, errors.New("unavailable")),
			backend.EXPECT().Finalize(gomock.Any(), "user-1", "session-1").
				Return(&assessment.Session{ID: "session-1", Status: assessment.StatusCompleted}, nil),
		)

		_, err = runner.Submit(context.Background())
		require.Error(t, err)
		select {
		case <-runner.Done():
			t.Fatal("done closed after a failed finalize")
		default:
		}

		_, err = runner.Submit(context.Background())
		require.NoError(t, err)
		<-runner.Done()
	})
}
