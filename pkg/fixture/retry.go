package fixture

import (
	"context"
	"errors"
	"time"
)

var errNoAttempts = errors.New("retryWithBackoff: MaxAttempts must be >= 0")

// RetryConfig controls the retry behavior of retryWithBackoff.
type RetryConfig struct {
	MaxAttempts int           // 0 retries until ctx is done
	BaseDelay   time.Duration // initial backoff delay
	MaxDelay    time.Duration // cap on delay (defaults to 1s if zero)
}

// errStop wraps an error that must not be retried.
type errStop struct{ err error }

func (e errStop) Error() string { return e.err.Error() }
func (e errStop) Unwrap() error { return e.err }

// permanent marks err as non-retryable.
func permanent(err error) error { return errStop{err} }

// retryWithBackoff calls fn until it succeeds, returns a permanent error,
// the attempts are exhausted or ctx is done. Delays grow exponentially
// from BaseDelay, capped at MaxDelay.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 0 {
		return errNoAttempts
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = time.Second
	}

	var lastErr error
	for attempt := 0; cfg.MaxAttempts == 0 || attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var stop errStop
		if errors.As(lastErr, &stop) {
			return stop.err
		}

		if cfg.MaxAttempts != 0 && attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.MaxDelay
		if attempt < 32 {
			delay = min(cfg.BaseDelay<<uint(attempt), cfg.MaxDelay)
		}
		if err := contextSleep(ctx, delay); err != nil {
			return errors.Join(err, lastErr)
		}
	}
	return lastErr
}

// contextSleep waits for the given duration or until the context is done,
// whichever comes first. Returns ctx.Err() if the context was cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
