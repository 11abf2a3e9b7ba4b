// Package bootstrap runs a process until it finishes or is interrupted and then releases its resources.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// App runs a main function and calls shutdown hooks when it stops.
type App struct {
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []hook
}

// Option configures an App.
type Option func(*App)

// WithShutdownTimeout bounds how long shutdown hooks and the main function may take after a signal.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		a.shutdownTimeout = d
	}
}

// New creates a new App.
func New(opts ...Option) *App {
	a := &App{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddShutdownHook registers fn to run on shutdown. Hooks run in reverse order of registration.
func (a *App) AddShutdownHook(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook{name: name, fn: fn})
}

// AddCloser registers a Close method as a shutdown hook.
func (a *App) AddCloser(name string, closer interface{ Close() error }) {
	a.AddShutdownHook(name, func(context.Context) error {
		return closer.Close()
	})
}

// Run calls run with a context that is canceled on SIGINT or SIGTERM.
// Shutdown hooks run once run returns or a signal arrives, whichever is first.
// After a signal, Run waits up to the shutdown timeout for run to return.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, a.shutdown())
	case <-ctx.Done():
		slog.Info("shutting down", "cause", context.Cause(ctx))
		shutdownErr := a.shutdown()

		select {
		case err := <-errCh:
			return errors.Join(err, shutdownErr)
		case <-time.After(a.shutdownTimeout):
			return errors.Join(fmt.Errorf("run did not return within %s", a.shutdownTimeout), shutdownErr)
		}
	}
}

// shutdown runs every registered hook once, newest first.
func (a *App) shutdown() error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			slog.Error("shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		slog.Debug("shutdown hook finished", "hook", h.name)
	}
	return errors.Join(errs...)
}
