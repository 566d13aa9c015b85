package retry

import (
	"errors"
	"fmt"
	"strings"
)

// MultiError aggregates the errors of every failed attempt.
type MultiError struct {
	Errors   []error // one entry per attempt, in order
	Attempts int
}

// Error returns the last attempt's error message, which is usually the
// most relevant one.
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "retry failed: no errors"
	}
	return e.Errors[len(e.Errors)-1].Error()
}

// Unwrap returns the last attempt's error so errors.Is/As match against
// the final failure.
func (e *MultiError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// AllErrors renders every attempt's error, one per line.
func (e *MultiError) AllErrors() string {
	if len(e.Errors) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("retry failed after %d attempts:", e.Attempts))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  attempt %d: %v", i+1, err))
	}
	return b.String()
}

// LastError returns the final attempt's error.
func (e *MultiError) LastError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// FirstError returns the first attempt's error.
func (e *MultiError) FirstError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

var (
	// ErrMaxAttemptsExceeded marks an exhausted retry loop.
	ErrMaxAttemptsExceeded = errors.New("retry: max attempts exceeded")

	// ErrBudgetExhausted marks a retry aborted by the budget.
	ErrBudgetExhausted = errors.New("retry: budget exhausted")
)
