package redis

import (
	"context"
	"fmt"
)

// HealthChecker probes every managed redis instance.
type HealthChecker struct {
	manager *Manager
}

// NewHealthChecker creates a checker over the manager's instances.
func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{manager: manager}
}

// Name implements component.HealthChecker.
func (h *HealthChecker) Name() string {
	return "redis"
}

// Check pings all instances and fails on the first unreachable one.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return fmt.Errorf("redis manager not initialized")
	}

	for _, name := range h.manager.GetInstanceNames() {
		client := h.manager.Client(name)
		if client == nil {
			return fmt.Errorf("redis instance %s not found", name)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s ping failed: %w", name, err)
		}
	}

	for _, name := range h.manager.GetClusterNames() {
		cluster := h.manager.Cluster(name)
		if cluster == nil {
			return fmt.Errorf("redis cluster %s not found", name)
		}
		if err := cluster.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis cluster %s ping failed: %w", name, err)
		}
	}

	return nil
}
