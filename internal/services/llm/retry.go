package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAttempts    = 5
	defaultBaseDelay   = time.Second
	defaultCeilingWait = 10 * time.Second
)

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func newStatusError(resp *http.Response, raw []byte) *statusError {
	return &statusError{
		code:       resp.StatusCode,
		body:       strings.TrimSpace(string(raw)),
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusRequestTimeout ||
		e.code == http.StatusTooManyRequests ||
		e.code >= http.StatusInternalServerError
}

// backoff doubles the delay per attempt up to the ceiling. Retry-After from
// the provider replaces the computed delay but never exceeds the ceiling.
type backoff struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
	sleeper  func(time.Duration)
}

func defaultBackoff() backoff {
	return backoff{attempts: defaultAttempts, base: defaultBaseDelay, ceiling: defaultCeilingWait}
}

func (b backoff) limit() int {
	if b.attempts <= 0 {
		return 1
	}
	return b.attempts
}

// next decides whether attempt n may be followed by another one and how long
// to wait first.
func (b backoff) next(ctx context.Context, err error, n int) (time.Duration, bool) {
	if n >= b.limit() || ctx.Err() != nil || isContextErr(err) {
		return 0, false
	}
	var (
		empty  *emptyReplyError
		status *statusError
		netErr net.Error
	)
	switch {
	case errors.As(err, &empty):
		return b.delay(n), true
	case errors.As(err, &status):
		if !status.retryable() {
			return 0, false
		}
		if status.retryAfter > 0 {
			return b.clamp(status.retryAfter), true
		}
		return b.delay(n), true
	case errors.As(err, &netErr) && netErr.Timeout():
		return b.delay(n), true
	default:
		return 0, false
	}
}

func (b backoff) delay(n int) time.Duration {
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 1; i < n; i++ {
		d *= 2
		if b.ceiling > 0 && d >= b.ceiling {
			break
		}
	}
	return b.clamp(d)
}

func (b backoff) clamp(d time.Duration) time.Duration {
	if b.ceiling > 0 && d > b.ceiling {
		return b.ceiling
	}
	return d
}

func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if b.sleeper != nil {
		b.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil && when.After(now) {
		return when.Sub(now)
	}
	return 0
}
