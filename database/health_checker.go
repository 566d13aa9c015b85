package database

import (
	"context"
	"fmt"
)

// HealthChecker pings every configured instance.
type HealthChecker struct {
	manager *Manager
}

// NewHealthChecker creates the database health checker.
func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{manager: manager}
}

// Name implements component.HealthChecker.
func (h *HealthChecker) Name() string {
	return "database"
}

// Check pings every instance with the request context. The first
// failing instance fails the whole check.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return fmt.Errorf("database manager not initialized")
	}

	names := h.manager.GetDBNames()
	if len(names) == 0 {
		return fmt.Errorf("no database instances configured")
	}

	for _, name := range names {
		if err := h.checkInstance(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

func (h *HealthChecker) checkInstance(ctx context.Context, name string) error {
	db := h.manager.DB(name)
	if db == nil {
		return fmt.Errorf("database instance %s not found", name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database %s ping failed: %w", name, err)
	}

	return nil
}
