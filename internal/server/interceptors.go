package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// UserIDHeader carries the caller identity set by the authenticating proxy.
const UserIDHeader = "X-User-Id"

type ownerKey struct{}

func withOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// ownerFrom returns the caller set by the identity interceptor.
func ownerFrom(ctx context.Context) (string, error) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	if !ok || owner == "" {
		return "", newError(connect.CodeUnauthenticated, errors.New("missing caller identity"), reasonUnauthenticated, nil)
	}
	return owner, nil
}

// NewIdentityInterceptor rejects calls without the user header and stores the caller in the context.
func NewIdentityInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			owner := strings.TrimSpace(req.Header().Get(UserIDHeader))
			if owner == "" {
				return nil, newError(connect.CodeUnauthenticated,
					errors.New("missing "+UserIDHeader+" header"), reasonUnauthenticated, nil)
			}
			return next(withOwner(ctx, owner), req)
		}
	}
}

// NewLoggingInterceptor logs every unary call with its outcome.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", time.Since(start)),
			}
			if err == nil {
				logger.InfoContext(ctx, "handled request", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
			if isClientError(code) {
				logger.WarnContext(ctx, "request failed", attrs...)
			} else {
				logger.ErrorContext(ctx, "request failed", attrs...)
			}
			return resp, err
		}
	}
}

// NewRateLimitInterceptor limits each caller to requestsPerSecond with the given burst.
// It must run after the identity interceptor. A non-positive rate disables limiting.
func NewRateLimitInterceptor(requestsPerSecond float64, burst int) connect.UnaryInterceptorFunc {
	limiters := newUserLimiters(rate.Limit(requestsPerSecond), max(burst, 1), time.Now)
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		if requestsPerSecond <= 0 {
			return next
		}
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			owner, err := ownerFrom(ctx)
			if err != nil {
				return nil, err
			}
			if !limiters.get(owner).Allow() {
				return nil, newError(connect.CodeResourceExhausted,
					errors.New("too many requests"), reasonRateLimited, map[string]string{"user": owner})
			}
			return next(ctx, req)
		}
	}
}

// limiterIdleTTL is how long a caller's limiter is kept after its last request.
const limiterIdleTTL = 10 * time.Minute

type userLimiters struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiters(limit rate.Limit, burst int, now func() time.Time) *userLimiters {
	idleTTL := limiterIdleTTL
	// A limiter may only be dropped once its bucket has refilled, or a new one would grant extra burst.
	if limit > 0 {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idleTTL {
			idleTTL = refill
		}
	}
	return &userLimiters{
		limit:     limit,
		burst:     burst,
		idleTTL:   idleTTL,
		now:       now,
		limiters:  make(map[string]*limiterEntry),
		lastSweep: now(),
	}
}

func (l *userLimiters) get(owner string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	entry, ok := l.limiters[owner]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[owner] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *userLimiters) sweep(now time.Time) {
	for owner, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, owner)
		}
	}
	l.lastSweep = now
}

func (l *userLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
