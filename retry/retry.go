// Package retry is a caller-side retry toolkit. The breaker deliberately
// never retries beyond its single half-open probe; callers that want
// retries layer them on with this package, using conditions that skip
// breaker fast-fails so a retry loop never hammers an open circuit.
package retry

import (
	"context"
	"time"
)

// Do runs operation until it succeeds, the condition stops it, or the
// attempt budget runs out.
func Do(ctx context.Context, operation func() error, opts ...Option) error {
	_, err := DoWithData(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, opts...)
	return err
}

// DoWithData runs operation and returns its data alongside the aggregate
// error of all attempts.
func DoWithData[T any](ctx context.Context, operation func() (T, error), opts ...Option) (T, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	var result T
	var errs []error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var err error
		if cfg.timeout > 0 {
			result, err = runWithTimeout(ctx, cfg.timeout, operation)
		} else {
			result, err = operation()
		}

		if err == nil {
			return result, nil
		}
		errs = append(errs, err)

		if !cfg.condition.ShouldRetry(err, attempt) || attempt == cfg.maxAttempts {
			return result, &AttemptsError{Errors: errs, Attempts: attempt}
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}

		wait := cfg.backoff.Next(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			// Not enough runway left to wait out the backoff.
			errs = append(errs, context.DeadlineExceeded)
			return result, &AttemptsError{Errors: errs, Attempts: attempt}
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, &AttemptsError{Errors: errs, Attempts: cfg.maxAttempts}
}

// runWithTimeout bounds a single attempt. The operation goroutine is left
// to finish on its own if the deadline wins; the result channel is
// buffered so it never leaks blocked.
func runWithTimeout[T any](ctx context.Context, timeout time.Duration, operation func() (T, error)) (T, error) {
	type outcome struct {
		data T
		err  error
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		data, err := operation()
		ch <- outcome{data: data, err: err}
	}()

	select {
	case out := <-ch:
		return out.data, out.err
	case <-opCtx.Done():
		var zero T
		return zero, opCtx.Err()
	}
}
