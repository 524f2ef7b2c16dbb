package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTransient marks infrastructure failures worth another attempt: sandbox
// allocation, an individual asset fetch, an individual upload chunk. Errors
// not carrying the marker stop the loop immediately.
var ErrTransient = errors.New("transient infrastructure error")

// Transient wraps err with the transient marker.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err carries the transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Config bounds one retry loop. Attempts counts the first try.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Option adjusts the retry loop, mainly for tests.
type Option func(*runner)

// WithSleeper replaces the delay function so tests run without real sleeps.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(r *runner) {
		r.sleep = sleep
	}
}

type runner struct {
	sleep func(context.Context, time.Duration) error
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to cfg.Attempts times with exponential backoff between
// attempts. A nil return stops the loop; so does any error that is not
// transient, and so does context cancellation. The last error is returned.
func Do(ctx context.Context, cfg Config, operation string, fn func(context.Context) error, opts ...Option) error {
	r := runner{sleep: defaultSleep}
	for _, opt := range opts {
		opt(&r)
	}

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == attempts {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		log.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying after transient failure")
		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func backoffDelay(cfg Config, attempt int) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
