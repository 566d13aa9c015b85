package testutil

import (
	"testing"

	"github.com/KOMKZ/go-aegis-framework/database"
	"github.com/KOMKZ/go-aegis-framework/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CLITestContext bundles the components a CLI test needs.
type CLITestContext struct {
	Logger    *zap.Logger
	DBManager *database.Manager
	DBHelper  *DBHelper
}

// CLITestOptions configures NewCLITestContext.
type CLITestOptions struct {
	// AutoMigrate lists the models migrated into the test database.
	AutoMigrate []interface{}

	// DBConfig overrides the default in-memory SQLite database.
	DBConfig map[string]database.Config

	// Logger overrides the default development logger.
	Logger *zap.Logger

	// SetupFunc runs after the base components exist, for wiring
	// repositories and services.
	SetupFunc func(*CLITestContext) error
}

// NewCLITestContext creates the context in one call.
//
//	ctx, cleanup := testutil.NewCLITestContext(t, testutil.CLITestOptions{
//	    AutoMigrate: []interface{}{&model.Order{}},
//	})
//	defer cleanup()
//
//	orderRepo := order.NewRepository(ctx.DBManager.DB("master"))
func NewCLITestContext(t *testing.T, opts CLITestOptions) (*CLITestContext, func()) {
	zapLogger := opts.Logger
	if zapLogger == nil {
		zapLogger, _ = zap.NewDevelopment()
	}

	dbConfig := opts.DBConfig
	if dbConfig == nil {
		dbConfig = map[string]database.Config{
			"master": {
				Driver:       "sqlite",
				DSN:          ":memory:",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		}
	}

	ctxLogger := logger.GetLogger("test")
	dbManager, err := database.NewManager(dbConfig, nil, ctxLogger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if len(opts.AutoMigrate) > 0 {
		db := dbManager.DB("master")
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			dbManager.Close()
			t.Fatalf("failed to migrate test tables: %v", err)
		}
	}

	dbHelper := NewDBHelper(dbManager.DB("master"))

	ctx := &CLITestContext{
		Logger:    zapLogger,
		DBManager: dbManager,
		DBHelper:  dbHelper,
	}

	if opts.SetupFunc != nil {
		if err := opts.SetupFunc(ctx); err != nil {
			dbManager.Close()
			t.Fatalf("setup func failed: %v", err)
		}
	}

	cleanup := func() {
		if dbManager != nil {
			dbManager.Close()
		}
		if zapLogger != nil {
			zapLogger.Sync()
		}
	}

	return ctx, cleanup
}

// SetupTestDB creates a minimal in-memory SQLite database for tests
// that need nothing else.
//
//	db, cleanup := testutil.SetupTestDB(t, &model.Order{})
//	defer cleanup()
func SetupTestDB(t *testing.T, models ...interface{}) (*gorm.DB, func()) {
	dbConfig := map[string]database.Config{
		"master": {
			Driver:       "sqlite",
			DSN:          ":memory:",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
	}

	ctxLogger := logger.GetLogger("test")
	dbManager, err := database.NewManager(dbConfig, nil, ctxLogger)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	db := dbManager.DB("master")
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			dbManager.Close()
			t.Fatalf("failed to migrate test tables: %v", err)
		}
	}

	cleanup := func() {
		dbManager.Close()
	}

	return db, cleanup
}
