package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy retries a whole operation with exponential backoff: the n-th
// retry waits BaseDelay * 2^(n-1).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Sleep waits for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits 1s, 2s and 4s between four attempts.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<(retry-1))
}

// Schedule lists every delay the policy may wait.
func (p RetryPolicy) Schedule() []time.Duration {
	out := make([]time.Duration, 0, p.MaxRetries)
	for i := 1; i <= p.MaxRetries; i++ {
		out = append(out, p.Delay(i))
	}
	return out
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, or the retries are
// used up. ctx is checked before every attempt. The returned error is the last
// one op produced, unwrapped from Permanent.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelled(err, lastErr)
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt > p.MaxRetries {
			return lastErr
		}

		if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
			return cancelled(err, lastErr)
		}
	}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cancelled(ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("sync cancelled: %w", ctxErr)
	}
	return fmt.Errorf("sync cancelled after error %q: %w", lastErr.Error(), ctxErr)
}
