package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits  []time.Duration
	cancel context.CancelFunc
	// cancelAfter cancels the context once this many waits happened.
	cancelAfter int
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	if r.cancel != nil && len(r.waits) == r.cancelAfter {
		r.cancel()
	}
	return ctx.Err()
}

func TestRetryPolicy_Schedule(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		DefaultRetryPolicy.Schedule())
	assert.Zero(t, DefaultRetryPolicy.Delay(0))
}

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep}

	var attempts []int
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("redis timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
}

func TestRetryPolicy_ExhaustedReturnsLastError(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("boom " + string(rune('0'+attempt)))
	})

	require.EqualError(t, err, "boom 4")
	assert.Equal(t, 4, calls)
	assert.Equal(t, DefaultRetryPolicy.Schedule(), sleeper.waits)
}

func TestRetryPolicy_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad input")
	calls := 0
	err := DefaultRetryPolicy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(sentinel)
	})

	assert.Same(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_CancelledBeforeNextAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &recordingSleeper{cancel: cancel, cancelAfter: 1}
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("unavailable")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RealTimerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := RetryPolicy{MaxRetries: 1, BaseDelay: time.Hour}

	start := time.Now()
	err := p.Do(ctx, func(ctx context.Context, attempt int) error { return errors.New("down") })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
