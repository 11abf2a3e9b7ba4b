package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

//go:generate mockgen -source=runner.go -destination=../mocks/assessment/mock_runner.go -package=mock_assessment

// Backend receives progress and the final submission of a running session.
// Service implements it.
type Backend interface {
	SaveProgress(ctx context.Context, owner, id string, items []Item) error
	Finalize(ctx context.Context, owner, id string) (*Session, error)
}

// Ticker delivers periodic ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// NewTimeTicker returns a Ticker backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// RunnerConfig tunes a Runner. Zero values fall back to defaults.
type RunnerConfig struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	SaveAttempts     uint
	SaveRetryDelay   time.Duration
	NewTicker        func(time.Duration) Ticker
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = 30 * time.Second
	}
	if c.SaveAttempts == 0 {
		c.SaveAttempts = 3
	}
	if c.SaveRetryDelay <= 0 {
		c.SaveRetryDelay = 500 * time.Millisecond
	}
	if c.NewTicker == nil {
		c.NewTicker = NewTimeTicker
	}
	return c
}

// Runner drives one in-progress session on the client side.
// Its in-memory session is the source of truth until the backend acknowledges finalization.
// Answers are autosaved periodically and the session is finalized once when time runs out.
type Runner struct {
	backend   Backend
	cfg       RunnerConfig
	countdown *Countdown
	owner     string
	id        string

	mu      sync.Mutex
	session *Session
	dirty   map[int]struct{}

	saveMu sync.Mutex
	saves  sync.WaitGroup

	finalizeMu sync.Mutex
	result     *Session
	done       chan struct{}
}

// NewRunner creates a runner for an in-progress session. The countdown starts from the
// time left at now according to the session's start time and limit.
func NewRunner(backend Backend, session *Session, now time.Time, cfg RunnerConfig) (*Runner, error) {
	if session.Status != StatusInProgress {
		return nil, apperrors.StateConflict("run", string(session.Status))
	}
	return &Runner{
		backend:   backend,
		cfg:       cfg.withDefaults(),
		countdown: NewCountdown(session.Remaining(now)),
		owner:     session.Owner,
		id:        session.ID,
		session:   session.Clone(),
		dirty:     make(map[int]struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Run processes ticks until the session is finalized or ctx is canceled.
// Pending autosaves are canceled with ctx and awaited before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	tick := r.cfg.NewTicker(r.cfg.TickInterval)
	defer tick.Stop()
	autosave := r.cfg.NewTicker(r.cfg.AutosaveInterval)
	defer autosave.Stop()
	defer r.saves.Wait()

	timedOut := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case <-tick.C():
			if !timedOut {
				if !r.countdown.Tick(r.cfg.TickInterval) {
					continue
				}
				timedOut = true
				slog.Info("session time is up", "session_id", r.id)
			}
			// The countdown fires once, so a transient failure is retried on the following ticks.
			if _, err := r.Submit(ctx); err != nil {
				if apperrors.IsKind(err, apperrors.KindTransient) {
					slog.Warn("finalize on timeout failed, retrying on next tick", "session_id", r.id, "error", err)
					continue
				}
				return fmt.Errorf("finalize on timeout: %w", err)
			}
			return nil
		case <-autosave.C():
			r.saves.Add(1)
			go func() {
				defer r.saves.Done()
				r.autosave(ctx)
			}()
		}
	}
}

// Answer records an answer in memory. It is persisted by the next autosave or Submit.
func (r *Runner) Answer(order int, answer string, elapsedSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable("record answer"); err != nil {
		return err
	}
	if err := r.session.RecordAnswer(order, answer, elapsedSeconds); err != nil {
		return err
	}
	r.dirty[order] = struct{}{}
	return nil
}

// ToggleFlag flips the review flag of an item in memory and returns the new value.
func (r *Runner) ToggleFlag(order int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writable("toggle flag"); err != nil {
		return false, err
	}
	flagged, err := r.session.ToggleFlag(order)
	if err != nil {
		return false, err
	}
	r.dirty[order] = struct{}{}
	return flagged, nil
}

// Pause stops the countdown. Ticks are ignored until Resume.
func (r *Runner) Pause() bool {
	return r.countdown.Pause()
}

// Resume restarts the countdown.
func (r *Runner) Resume() bool {
	return r.countdown.Resume()
}

func (r *Runner) Paused() bool {
	return r.countdown.Paused()
}

func (r *Runner) Remaining() time.Duration {
	return r.countdown.Remaining()
}

// Snapshot returns a copy of the in-memory session.
func (r *Runner) Snapshot() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

// Done is closed once the backend acknowledged finalization.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Result returns the finalized session, or nil before finalization.
func (r *Runner) Result() *Session {
	r.finalizeMu.Lock()
	defer r.finalizeMu.Unlock()
	return r.result
}

// Submit saves pending changes and finalizes the session. It finalizes at most once:
// later calls return the first result. A failed attempt can be retried.
func (r *Runner) Submit(ctx context.Context) (*Session, error) {
	r.finalizeMu.Lock()
	defer r.finalizeMu.Unlock()
	if r.result != nil {
		return r.result, nil
	}

	if err := r.flush(ctx); err != nil {
		return nil, fmt.Errorf("save progress before finalize: %w", err)
	}
	session, err := r.backend.Finalize(ctx, r.owner, r.id)
	if err != nil {
		return nil, fmt.Errorf("backend.Finalize() > %w", err)
	}

	r.mu.Lock()
	r.session = session.Clone()
	r.mu.Unlock()
	r.result = session
	close(r.done)
	return session, nil
}

// Flush saves pending changes now, retrying transient failures.
func (r *Runner) Flush(ctx context.Context) error {
	return r.flush(ctx)
}

// autosave persists pending changes. Failures are logged and retried on the next interval.
// It is skipped while another save is in flight.
func (r *Runner) autosave(ctx context.Context) {
	if !r.saveMu.TryLock() {
		return
	}
	defer r.saveMu.Unlock()

	items := r.takeDirty()
	if len(items) == 0 {
		return
	}
	if err := r.save(ctx, items); err != nil {
		r.markDirty(items)
		slog.Warn("autosave failed", "session_id", r.id, "items", len(items), "error", err)
		return
	}
	slog.Debug("autosaved session", "session_id", r.id, "items", len(items))
}

func (r *Runner) flush(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	items := r.takeDirty()
	if len(items) == 0 {
		return nil
	}
	if err := r.save(ctx, items); err != nil {
		r.markDirty(items)
		return err
	}
	return nil
}

func (r *Runner) save(ctx context.Context, items []Item) error {
	return retry.Do(
		func() error {
			return r.backend.SaveProgress(ctx, r.owner, r.id, items)
		},
		retry.Context(ctx),
		retry.Attempts(r.cfg.SaveAttempts),
		retry.Delay(r.cfg.SaveRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return apperrors.IsKind(err, apperrors.KindTransient)
		}),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
}

// takeDirty returns copies of the changed items in order and clears the dirty set.
func (r *Runner) takeDirty() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]Item, 0, len(r.dirty))
	for order := range r.dirty {
		item, err := r.session.Item(order)
		if err == nil {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	clear(r.dirty)
	return items
}

func (r *Runner) markDirty(items []Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.dirty[item.Order] = struct{}{}
	}
}

func (r *Runner) writable(op string) error {
	select {
	case <-r.done:
		return apperrors.StateConflict(op, string(StatusCompleted))
	default:
	}
	if r.countdown.Expired() {
		return apperrors.StateConflict(op, "expired")
	}
	return nil
}
