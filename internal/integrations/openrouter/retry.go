package openrouter

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 6 * time.Second
	jitterMax = 250 * time.Millisecond
)

var retryableStatus = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

func isRetryableStatus(status int) bool {
	_, ok := retryableStatus[status]
	return ok
}

// Failure is the terminal outcome of an exhausted or non-retryable upstream
// request. Status is zero when no HTTP response was received at all.
type Failure struct {
	Status        int
	Detail        string
	RetryAfter    time.Duration
	HasRetryAfter bool
	TimedOut      bool
	TransportErr  string
	Attempts      int
}

func (f *Failure) Error() string {
	if f.Status == 0 {
		if f.TimedOut {
			return fmt.Sprintf("openrouter: no response after %d attempt(s): timeout", f.Attempts)
		}
		return fmt.Sprintf("openrouter: no response after %d attempt(s): %s", f.Attempts, f.TransportErr)
	}
	return fmt.Sprintf("openrouter: upstream status %d after %d attempt(s)", f.Status, f.Attempts)
}

// HTTPStatusCode reports the last upstream status, zero when none was
// received.
func (f *Failure) HTTPStatusCode() int {
	return f.Status
}

// RetryAfterSeconds converts the provider delay to whole seconds with a floor
// of one, for Retry-After headers and error payloads. Returns zero when the
// provider gave no delay.
func (f *Failure) RetryAfterSeconds() int {
	if !f.HasRetryAfter {
		return 0
	}
	secs := int((f.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// parseRetryAfter understands both Retry-After forms: delay seconds
// (fractions tolerated) and HTTP-date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// backoff returns the wait before the next attempt: the provider's own delay
// when present, else exponential with jitter, both capped at retryMax.
func (c *Client) backoff(attempt int, retryAfter time.Duration, hasRetryAfter bool) time.Duration {
	if hasRetryAfter {
		if retryAfter > retryMax {
			return retryMax
		}
		return retryAfter
	}
	d := retryBase<<(attempt-1) + c.jitter()
	if d > retryMax {
		return retryMax
	}
	return d
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(jitterMax)))
}
