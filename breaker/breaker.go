// Package breaker provides per-resource circuit breaking for outbound calls.
//
// Design notes:
//   - Independent package, depends on no other framework package except logger.
//   - Event driven: every call outcome and state transition is published on an
//     internal bus the application layer can subscribe to.
//   - Metrics are open: the rolling window snapshot is readable at any time.
//   - Opt-in: a disabled Manager passes every call straight through.
package breaker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCircuitOpen rejects calls while the open timer is still running.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests rejects calls beyond the half-open trial allowance.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Breaker guards a single resource. Obtain instances through a Manager.
type Breaker interface {
	// Fire runs the protected call. The response is never nil; a failed
	// call or rejection carries its error in Response.Error. When the
	// request has a Fallback it is consulted on every failure path
	// (rejection while open, execute error, timeout) and the response
	// reports FromFallback.
	Fire(ctx context.Context, req *Request) *Response

	// GetState returns the current state.
	GetState() State

	// GetMetrics returns a rolling window snapshot.
	GetMetrics() *MetricsSnapshot

	// Reset forces the breaker back to Closed and clears the window.
	Reset()
}

// Request describes one protected call.
type Request struct {
	// Resource identifies the guarded dependency (service name, route).
	Resource string

	// Execute performs the actual call.
	Execute func(ctx context.Context) (interface{}, error)

	// Fallback is consulted on any failure path with the original error.
	// Optional; without it the error propagates in Response.Error.
	Fallback func(ctx context.Context, err error) (interface{}, error)

	// Timeout bounds Execute via the context. Zero falls back to the
	// resource config's call_timeout; zero there means unbounded.
	Timeout time.Duration
}

// Response is the outcome of Fire.
type Response struct {
	// Value is the call or fallback result.
	Value interface{}

	// FromFallback reports that Value came from the fallback.
	FromFallback bool

	// Duration is the time spent producing the outcome: the call itself,
	// or the fallback when it supplied the result.
	Duration time.Duration

	// Error is the terminal error, nil on success.
	Error error
}

// State is the breaker state machine position.
type State int

const (
	// StateClosed passes calls through and records outcomes.
	StateClosed State = iota

	// StateOpen short-circuits calls until the open timeout expires.
	StateOpen

	// StateHalfOpen admits a bounded number of trial calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

func (s State) IsOpen() bool { return s == StateOpen }

func (s State) IsClosed() bool { return s == StateClosed }

func (s State) IsHalfOpen() bool { return s == StateHalfOpen }
