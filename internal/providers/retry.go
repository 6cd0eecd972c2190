package providers

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential backoff for real provider calls
type RetryPolicy struct {
	// MaxAttempts includes the first call
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles afterwards
	BaseDelay time.Duration
	// MaxJitter bounds the random delay added to every wait, exclusive
	MaxJitter time.Duration

	// Sleep and Jitter are replaced in tests
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
}

// DefaultRetryPolicy returns 3 attempts, 1s base delay and 500ms jitter
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Backoff returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << uint(attempt-1)
	return delay + p.jitter()
}

func (p RetryPolicy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	if p.Jitter != nil {
		return p.Jitter(p.MaxJitter)
	}
	return time.Duration(rand.Int63n(int64(p.MaxJitter)))
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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

// Do runs fn until it succeeds or the attempts are exhausted and returns the
// last error. There is no wait after the final attempt. A cancelled context
// stops the loop early.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if attempt == attempts {
			break
		}

		if err := p.sleep(ctx, p.Backoff(attempt)); err != nil {
			return attempt, lastErr
		}
	}

	return attempts, lastErr
}
