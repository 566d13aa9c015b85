package retry

import (
	"context"
	"errors"
	"net"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RetryCondition decides whether a failed attempt should be retried.
type RetryCondition interface {
	// ShouldRetry is called with the attempt's error and the attempt
	// number (starting at 1).
	ShouldRetry(err error, attempt int) bool
}

// ============================================================
// Basic conditions
// ============================================================

type alwaysRetry struct{}

// AlwaysRetry retries every error.
func AlwaysRetry() RetryCondition {
	return &alwaysRetry{}
}

func (c *alwaysRetry) ShouldRetry(err error, attempt int) bool {
	return err != nil
}

type neverRetry struct{}

// NeverRetry never retries.
func NeverRetry() RetryCondition {
	return &neverRetry{}
}

func (c *neverRetry) ShouldRetry(err error, attempt int) bool {
	return false
}

// ============================================================
// Error matching conditions
// ============================================================

type retryOnError struct {
	target error
}

// RetryOnError retries when errors.Is(err, target).
func RetryOnError(target error) RetryCondition {
	return &retryOnError{target: target}
}

func (c *retryOnError) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, c.target)
}

type retryOnErrors struct {
	targets []error
}

// RetryOnErrors retries when err matches any target.
func RetryOnErrors(targets ...error) RetryCondition {
	return &retryOnErrors{targets: targets}
}

func (c *retryOnErrors) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	for _, target := range c.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type retryOnCondition struct {
	fn func(error) bool
}

// RetryOnCondition retries when fn reports the error as retryable.
func RetryOnCondition(fn func(error) bool) RetryCondition {
	return &retryOnCondition{fn: fn}
}

func (c *retryOnCondition) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	return c.fn(err)
}

// ============================================================
// gRPC condition
// ============================================================

type retryOnGRPCCodes struct {
	codes map[codes.Code]struct{}
}

// RetryOnGRPCCodes retries when the error carries one of the given gRPC
// status codes.
func RetryOnGRPCCodes(targetCodes ...codes.Code) RetryCondition {
	codesMap := make(map[codes.Code]struct{}, len(targetCodes))
	for _, code := range targetCodes {
		codesMap[code] = struct{}{}
	}
	return &retryOnGRPCCodes{codes: codesMap}
}

func (c *retryOnGRPCCodes) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	_, shouldRetry := c.codes[st.Code()]
	return shouldRetry
}

// ============================================================
// HTTP condition
// ============================================================

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

type retryOnHTTPStatus struct {
	statuses map[int]struct{}
}

// RetryOnHTTPStatus retries when the error carries one of the given
// HTTP status codes.
func RetryOnHTTPStatus(statuses ...int) RetryCondition {
	statusMap := make(map[int]struct{}, len(statuses))
	for _, status := range statuses {
		statusMap[status] = struct{}{}
	}
	return &retryOnHTTPStatus{statuses: statusMap}
}

func (c *retryOnHTTPStatus) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}

	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}

	_, shouldRetry := c.statuses[httpErr.StatusCode()]
	return shouldRetry
}

// ============================================================
// Transient error condition
// ============================================================

type temporaryError interface {
	Temporary() bool
}

type retryOnTemporaryError struct{}

// RetryOnTemporaryError retries transport-level transient failures:
// temporary/timeout net errors, context deadline/cancel, and the usual
// connection-level syscall errors.
func RetryOnTemporaryError() RetryCondition {
	return &retryOnTemporaryError{}
}

func (c *retryOnTemporaryError) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}

	if te, ok := err.(temporaryError); ok && te.Temporary() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		if isConnSyscallError(opErr.Err) {
			return true
		}
	}

	return isConnSyscallError(err)
}

func isConnSyscallError(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EPIPE)
}

// ============================================================
// Combinators
// ============================================================

type andCondition struct {
	conditions []RetryCondition
}

// And retries only when every condition agrees.
func And(conditions ...RetryCondition) RetryCondition {
	return &andCondition{conditions: conditions}
}

func (c *andCondition) ShouldRetry(err error, attempt int) bool {
	for _, cond := range c.conditions {
		if !cond.ShouldRetry(err, attempt) {
			return false
		}
	}
	return true
}

type orCondition struct {
	conditions []RetryCondition
}

// Or retries when any condition agrees.
func Or(conditions ...RetryCondition) RetryCondition {
	return &orCondition{conditions: conditions}
}

func (c *orCondition) ShouldRetry(err error, attempt int) bool {
	for _, cond := range c.conditions {
		if cond.ShouldRetry(err, attempt) {
			return true
		}
	}
	return false
}

type notCondition struct {
	condition RetryCondition
}

// Not negates a condition.
func Not(condition RetryCondition) RetryCondition {
	return &notCondition{condition: condition}
}

func (c *notCondition) ShouldRetry(err error, attempt int) bool {
	return !c.condition.ShouldRetry(err, attempt)
}
