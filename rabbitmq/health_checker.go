package rabbitmq

import (
	"context"
	"fmt"
	"time"
)

// HealthChecker reports whether the broker connection is alive.
type HealthChecker struct {
	manager *Manager
	timeout time.Duration
}

// NewHealthChecker creates a health checker for the given manager.
func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{
		manager: manager,
		timeout: 5 * time.Second,
	}
}

// Name returns the check name.
func (h *HealthChecker) Name() string {
	return "rabbitmq"
}

// Check verifies the broker connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return fmt.Errorf("rabbitmq manager is nil")
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return h.manager.Ping(checkCtx)
}

// SetTimeout overrides the check timeout.
func (h *HealthChecker) SetTimeout(timeout time.Duration) {
	h.timeout = timeout
}
