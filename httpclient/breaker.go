package httpclient

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-aegis-framework/breaker"
)

// BreakerManager is the circuit breaker surface the client depends on.
// *breaker.Manager satisfies it.
type BreakerManager interface {
	// Fire runs the protected call. The returned Response is never nil.
	Fire(ctx context.Context, req *breaker.Request) *breaker.Response

	// IsEnabled reports whether breaking is active.
	IsEnabled() bool

	// GetState returns the current state for a resource.
	GetState(resource string) breaker.State
}

// WithBreaker sets the circuit breaker manager.
func WithBreaker(manager BreakerManager) Option {
	return func(c *config) {
		c.breakerManager = manager
	}
}

// WithBreakerResource sets the breaker resource name. Defaults to the
// request URL.
func WithBreakerResource(resource string) Option {
	return func(c *config) {
		c.breakerResource = resource
	}
}

// WithBreakerFallback sets the degraded-response hook consulted when the
// protected call fails or is rejected.
func WithBreakerFallback(fallback func(ctx context.Context, err error) (*Response, error)) Option {
	return func(c *config) {
		c.breakerFallback = fallback
	}
}

// DisableBreaker disables the breaker for a single request.
func DisableBreaker() Option {
	return func(c *config) {
		c.breakerDisabled = true
	}
}

// executeWithBreaker runs one HTTP request through the circuit breaker.
func (c *Client) executeWithBreaker(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	if cfg.breakerDisabled || cfg.breakerManager == nil || !cfg.breakerManager.IsEnabled() {
		return c.doRequest(ctx, req, cfg)
	}

	resource := cfg.breakerResource
	if resource == "" {
		resource = req.URL
		if cfg.baseURL != "" {
			resource = cfg.baseURL + req.URL
		}
	}

	breakerReq := &breaker.Request{
		Resource: resource,
		Execute: func(ctx context.Context) (interface{}, error) {
			resp, err := c.doRequest(ctx, req, cfg)
			if err != nil {
				return nil, err
			}

			// 5xx counts against the breaker window.
			if resp.IsServerError() {
				return resp, &StatusError{Code: resp.StatusCode, Status: resp.Status}
			}

			return resp, nil
		},
	}

	if cfg.breakerFallback != nil {
		breakerReq.Fallback = func(ctx context.Context, err error) (interface{}, error) {
			return cfg.breakerFallback(ctx, err)
		}
	}

	result := cfg.breakerManager.Fire(ctx, breakerReq)
	if result.Error != nil {
		return nil, result.Error
	}

	resp, ok := result.Value.(*Response)
	if !ok {
		return nil, fmt.Errorf("invalid response type from breaker")
	}

	return resp, nil
}
