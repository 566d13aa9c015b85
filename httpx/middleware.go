package httpx

import (
	"github.com/gin-gonic/gin"
)

const errorLogSettingsKey = "httpx:error_log_settings"

// errorLogSettings is ErrorLoggingConfig preprocessed for the hot path:
// the ignore list becomes a set so HandleError does a map lookup per
// error instead of a scan.
type errorLogSettings struct {
	Enable    bool
	Ignore    map[int]struct{}
	FullChain bool
	Level     string
}

func compileErrorLogSettings(cfg ErrorLoggingConfig) errorLogSettings {
	ignore := make(map[int]struct{}, len(cfg.IgnoreHTTPStatus))
	for _, status := range cfg.IgnoreHTTPStatus {
		ignore[status] = struct{}{}
	}
	return errorLogSettings{
		Enable:    cfg.Enable,
		Ignore:    ignore,
		FullChain: cfg.FullErrorChain,
		Level:     cfg.LogLevel,
	}
}

// ErrorLoggingMiddleware injects the error logging configuration into the
// request context; HandleError consults it to decide whether and how to
// log handler errors.
func ErrorLoggingMiddleware(cfg ErrorLoggingConfig) gin.HandlerFunc {
	settings := compileErrorLogSettings(cfg)
	return func(c *gin.Context) {
		c.Set(errorLogSettingsKey, settings)
		c.Next()
	}
}

// errorLogSettingsFrom reads the injected settings; without the
// middleware error logging stays off.
func errorLogSettingsFrom(c *gin.Context) errorLogSettings {
	if val, exists := c.Get(errorLogSettingsKey); exists {
		if settings, ok := val.(errorLogSettings); ok {
			return settings
		}
	}
	return errorLogSettings{FullChain: true, Level: "error"}
}
