package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPHandler serves the health endpoints backed by the health component.
type HTTPHandler struct {
	healthComponent *Component
}

// NewHTTPHandler creates the health endpoint handler.
func NewHTTPHandler(healthComponent *Component) *HTTPHandler {
	return &HTTPHandler{
		healthComponent: healthComponent,
	}
}

// Handle serves GET /health: the full aggregated report. Unhealthy maps
// to 503; degraded keeps 200 with the state carried in the body.
func (h *HTTPHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.healthComponent.Check(c.Request.Context())

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

// HandleLiveness serves the liveness probe: alive means the process
// answers, dependencies are not consulted.
func (h *HTTPHandler) HandleLiveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
		})
	}
}

// HandleReadiness serves the readiness probe: only a fully healthy
// report yields 200, so degraded instances are taken out of rotation.
func (h *HTTPHandler) HandleReadiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.healthComponent.Check(c.Request.Context())

		statusCode := http.StatusOK
		if response.Status != StatusHealthy {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status": response.Status,
		})
	}
}

// RegisterRoutes mounts /health, /health/liveness and /health/readiness.
// A nil or disabled component registers nothing.
func RegisterRoutes(router gin.IRouter, healthComponent *Component) {
	if healthComponent == nil || !healthComponent.IsEnabled() {
		return
	}

	handler := NewHTTPHandler(healthComponent)

	router.GET("/health", handler.Handle())
	router.GET("/health/liveness", handler.HandleLiveness())
	router.GET("/health/readiness", handler.HandleReadiness())
}
