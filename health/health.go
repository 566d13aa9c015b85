// Package health aggregates component health checks into a single
// report for the /health endpoint.
package health

import (
	"time"

	"github.com/KOMKZ/go-aegis-framework/component"
)

// Status of a check or of the aggregated report.
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded means the service is up with reduced capability,
	// e.g. answers are served from the fallback cache.
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Checker aliases component.HealthChecker for convenience.
type Checker = component.HealthChecker

// CheckResult is the outcome of one registered check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Response is the aggregated health report.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// IsHealthy reports whether every check passed.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// IsDegraded reports whether the service runs with reduced capability.
func (r *Response) IsDegraded() bool {
	return r.Status == StatusDegraded
}
