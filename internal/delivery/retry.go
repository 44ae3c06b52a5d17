package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// transientError marks a failure worth retrying: timeouts, throttling, upstream
// 5xx responses. Permanent failures (bad credentials, rejected payload) are not.
type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// markTransient wraps err so the retry loop knows another attempt may succeed.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// isTransient reports whether err was marked transient, or is a context deadline
// (timeouts count as transient per the channel contract).
func isTransient(err error) bool {
	var t transientError
	return errors.As(err, &t) || errors.Is(err, context.DeadlineExceeded)
}

// retryTransient runs op up to attempts times, sleeping base*3^(attempt-1) between
// tries. Only transient failures are retried; the first permanent failure aborts.
func retryTransient(ctx context.Context, attempts int, base time.Duration, logger zerolog.Logger, op func(context.Context) (string, error)) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		id, err := op(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if !isTransient(err) {
			return "", err
		}
		if attempt == attempts {
			break
		}

		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 3
		}
		logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", delay).
			Msg("transient delivery failure, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", lastErr
}
