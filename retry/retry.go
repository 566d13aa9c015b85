// Package retry wraps fallible operations with bounded retries,
// pluggable backoff and retry conditions.
package retry

import (
	"context"
	"errors"
	"time"
)

// Do runs operation, retrying on failure according to the options.
// Returns nil on the first success, or a *MultiError aggregating every
// attempt's error once retries are exhausted or aborted.
func Do(ctx context.Context, operation func() error, opts ...Option) error {
	_, err := DoWithData(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, opts...)
	return err
}

// DoWithData runs an operation that yields data, retrying on failure.
func DoWithData[T any](ctx context.Context, operation func() (T, error), opts ...Option) (T, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	var result T
	var errs []error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		// Retries (not the first attempt) consume budget when enabled.
		if cfg.budget != nil && attempt > 1 && !cfg.budget.Allow() {
			return result, &MultiError{
				Errors:   append(errs, ErrBudgetExhausted),
				Attempts: attempt - 1,
			}
		}

		var err error
		if cfg.attemptTimeout > 0 {
			opCtx, cancel := context.WithTimeout(ctx, cfg.attemptTimeout)
			result, err = executeWithContext(opCtx, operation)
			cancel()
		} else {
			result, err = operation()
		}

		if err == nil {
			if cfg.budget != nil {
				cfg.budget.Record(true)
			}
			return result, nil
		}

		errs = append(errs, err)
		if cfg.budget != nil {
			cfg.budget.Record(false)
		}

		if !cfg.condition.ShouldRetry(err, attempt) {
			return result, &MultiError{Errors: errs, Attempts: attempt}
		}

		if attempt == cfg.maxAttempts {
			return result, &MultiError{Errors: errs, Attempts: attempt}
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}

		backoff := cfg.backoff.Next(attempt)

		// Give up early when the remaining deadline cannot cover the wait.
		if deadline, ok := ctx.Deadline(); ok {
			if time.Until(deadline) < backoff {
				return result, &MultiError{
					Errors:   append(errs, context.DeadlineExceeded),
					Attempts: attempt,
				}
			}
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, &MultiError{Errors: errs, Attempts: cfg.maxAttempts}
}

// executeWithContext runs the operation in a goroutine so a timed-out
// attempt returns promptly. The abandoned goroutine finishes in the
// background; operations must tolerate that.
func executeWithContext[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	type result struct {
		data T
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		data, err := operation()
		ch <- result{data: data, err: err}
	}()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ============================================================
// Error inspection helpers
// ============================================================

// IsMaxAttemptsExceeded reports whether err came out of an exhausted
// retry loop.
func IsMaxAttemptsExceeded(err error) bool {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Attempts > 0
	}
	return false
}

// GetAttempts returns how many attempts were made, 0 when err is not a
// retry error.
func GetAttempts(err error) int {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Attempts
	}
	return 0
}

// GetAllErrors returns every attempt's error, nil when err is not a
// retry error.
func GetAllErrors(err error) []error {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Errors
	}
	return nil
}
