package testutil

import (
	"testing"

	"github.com/KOMKZ/go-aegis-framework/database"
	"github.com/KOMKZ/go-aegis-framework/redis"
	"github.com/gin-gonic/gin"
)

// TestServer wraps a fully started application for integration tests.
type TestServer struct {
	Engine *gin.Engine
	DB     *database.Manager
	Redis  *redis.Manager
}

// TestApp is the slice of the application surface the test server
// needs. Any app implementing it can be driven by NewTestServer.
type TestApp interface {
	// RunNonBlocking performs the full startup without waiting for a
	// shutdown signal.
	RunNonBlocking() error

	GetHTTPServer() interface {
		GetEngine() *gin.Engine
	}

	GetDBManager() *database.Manager

	GetRedisManager() *redis.Manager

	Shutdown()
}

// NewTestServer starts the app through its real startup path and
// exposes the pieces tests drive directly.
//
//	userApp := app.NewWithConfig(configPath)
//	userApp.RegisterComponents(...)
//	server, err := testutil.NewTestServer(userApp)
func NewTestServer(app TestApp) (*TestServer, error) {
	gin.SetMode(gin.TestMode)

	if err := app.RunNonBlocking(); err != nil {
		return nil, err
	}

	httpServer := app.GetHTTPServer()
	engine := httpServer.GetEngine()
	dbManager := app.GetDBManager()
	redisManager := app.GetRedisManager()

	return &TestServer{
		Engine: engine,
		DB:     dbManager,
		Redis:  redisManager,
	}, nil
}

// Close releases the server's connections.
func (ts *TestServer) Close() error {
	if ts.Redis != nil {
		if err := ts.Redis.Close(); err != nil {
			return err
		}
	}

	if ts.DB != nil {
		return ts.DB.Close()
	}
	return nil
}

// MustNewTestServer fails the test when the server cannot start.
func MustNewTestServer(t *testing.T, app TestApp) *TestServer {
	server, err := NewTestServer(app)
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}
	return server
}
