// Package ratelimit implements a fixed-window per-client request counter over
// a pluggable Store, so the in-memory map can be swapped for a shared store
// without changing callers.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Store records one hit for key and returns the updated count together with
// the window reset time. Implementations must make the increment atomic: when
// no window exists for key, or the previous window has expired at now, a new
// window starting at now begins with count 1.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (count int, reset time.Time, err error)
}

// Result reports the outcome of a limiter check. Remaining and Reset are
// populated regardless of whether the request was limited.
type Result struct {
	Limited   bool
	Remaining int
	Reset     time.Time
}

// Limiter enforces a fixed window of at most Max hits per key.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
}

// New creates a Limiter over the given store.
func New(store Store, max int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store must not be nil")
	}
	if max <= 0 {
		return nil, errors.New("ratelimit: max must be positive")
	}
	if window <= 0 {
		return nil, errors.New("ratelimit: window must be positive")
	}
	return &Limiter{store: store, max: max, window: window}, nil
}

// Max returns the configured per-window limit.
func (l *Limiter) Max() int {
	return l.max
}

// Check records a hit for key at now. A store failure fails open: the request
// is allowed and the error is logged, since refusing traffic on a counter
// outage would turn the limiter into an availability hazard.
func (l *Limiter) Check(ctx context.Context, key string, now time.Time) Result {
	count, reset, err := l.store.Hit(ctx, key, now, l.window)
	if err != nil {
		slog.Error("rate limit store failure, failing open", "key", key, "err", err)
		return Result{Limited: false, Remaining: l.max, Reset: now.Add(l.window)}
	}

	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   count > l.max,
		Remaining: remaining,
		Reset:     reset,
	}
}

// RetryAfterSeconds returns the whole seconds until the window resets, with a
// floor of one second for use in Retry-After headers.
func (r Result) RetryAfterSeconds(now time.Time) int {
	d := r.Reset.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
