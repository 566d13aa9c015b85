package health

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KOMKZ/go-aegis-framework/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sectionLoader is a minimal component.ConfigLoader serving raw config
// sections.
type sectionLoader struct {
	data map[string]interface{}
}

func (l *sectionLoader) Unmarshal(key string, v interface{}) error {
	raw, ok := l.data[key]
	if !ok {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (l *sectionLoader) Get(key string) interface{} { return l.data[key] }

func (l *sectionLoader) GetString(key string) string {
	v, _ := l.data[key].(string)
	return v
}

func (l *sectionLoader) GetInt(key string) int {
	v, _ := l.data[key].(int)
	return v
}

func (l *sectionLoader) GetBool(key string) bool {
	v, _ := l.data[key].(bool)
	return v
}

func (l *sectionLoader) IsSet(key string) bool {
	_, ok := l.data[key]
	return ok
}

func healthRouter(t *testing.T, checkers ...*scriptedChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := NewComponent()
	require.NoError(t, c.Init(context.Background(), &sectionLoader{}))
	for _, checker := range checkers {
		c.GetAggregator().Register(checker)
	}

	router := gin.New()
	RegisterRoutes(router, c)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	t.Run("healthy dependencies report 200", func(t *testing.T) {
		router := healthRouter(t, &scriptedChecker{name: "database"})

		res := testutil.GET("/health").Do(router)
		assert.Equal(t, 200, res.Status())
		assert.Contains(t, res.Body(), `"status":"healthy"`)
		assert.Contains(t, res.Body(), `"database"`)
	})

	t.Run("a failing dependency turns the check 503", func(t *testing.T) {
		router := healthRouter(t,
			&scriptedChecker{name: "database", err: errors.New("connection refused")})

		assert.Equal(t, 503, testutil.GET("/health").Do(router).Status())

		// liveness ignores dependencies and stays green
		res := testutil.GET("/health/liveness").Do(router)
		assert.Equal(t, 200, res.Status())
		assert.Contains(t, res.Body(), "alive")

		// readiness follows the aggregated state
		assert.Equal(t, 503, testutil.GET("/health/readiness").Do(router).Status())
	})

	t.Run("disabled component registers no routes", func(t *testing.T) {
		gin.SetMode(gin.TestMode)

		c := NewComponent()
		loader := &sectionLoader{data: map[string]interface{}{
			"health": map[string]interface{}{"enabled": false},
		}}
		require.NoError(t, c.Init(context.Background(), loader))

		router := gin.New()
		RegisterRoutes(router, c)

		assert.Equal(t, 404, testutil.GET("/health").Do(router).Status())
	})
}
