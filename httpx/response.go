// Package httpx provides the unified HTTP request/response plumbing:
// response envelope, parse+validate helpers, generic handler wrapper and
// the gin middlewares (trace id, access log, error logging).
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-aegis-framework/database"
	"github.com/KOMKZ/go-aegis-framework/errcode"
	"github.com/KOMKZ/go-aegis-framework/logger"
)

// Response is the unified envelope. Code 0 means success; any other value
// is a layered error code.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// OkJson writes a success envelope.
func OkJson(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: 0,
		Msg:  "success",
		Data: data,
	})
}

// BadRequestJson writes a 400 envelope from err.
func BadRequestJson(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Code: 400,
		Msg:  err.Error(),
	})
}

// NotFoundJson writes a 404 envelope.
func NotFoundJson(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{
		Code: 404,
		Msg:  msg,
	})
}

// InternalErrorJson writes a 500 envelope.
func InternalErrorJson(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code: 500,
		Msg:  msg,
	})
}

// NoRouteHandler returns the engine.NoRoute() handler producing the
// envelope instead of gin's plain 404.
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code: 404,
			Msg:  "route not found: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	}
}

// NoMethodHandler returns the engine.NoMethod() handler.
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, Response{
			Code: 405,
			Msg:  "method not allowed: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	}
}

// HandleError maps an error to the envelope:
//   - *errcode.LayeredError answers with its HTTP status, code, message
//     and optional data; logging follows the ErrorLoggingConfig injected
//     by ErrorLoggingMiddleware (off by default).
//   - database.ErrRecordNotFound answers 404.
//   - anything else answers 500.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()
	cfg := errorLogSettingsFrom(c)

	var layeredErr *errcode.LayeredError
	if errors.As(err, &layeredErr) {
		if shouldLogError(cfg, layeredErr) {
			fields := []zap.Field{
				zap.Int("error_code", layeredErr.Code()),
				zap.String("error_msg", layeredErr.Message()),
			}
			if cfg.FullChain {
				fields = append(fields,
					zap.String("error_chain", layeredErr.String()),
					zap.Error(err),
				)
			}

			log := logger.GetLogger("aegis")
			switch cfg.Level {
			case "warn":
				log.WarnCtx(ctx, "Request failed", fields...)
			case "info":
				log.InfoCtx(ctx, "Request failed", fields...)
			default:
				log.ErrorCtx(ctx, "Request failed", fields...)
			}
		}

		c.JSON(layeredErr.HTTPStatus(), Response{
			Code: layeredErr.Code(),
			Msg:  layeredErr.Message(),
			Data: layeredErr.Data(),
		})
		return
	}

	if errors.Is(err, database.ErrRecordNotFound) {
		if cfg.Enable {
			logger.GetLogger("aegis").WarnCtx(ctx, "Record not found", zap.Error(err))
		}
		NotFoundJson(c, err.Error())
		return
	}

	if cfg.Enable {
		logger.GetLogger("aegis").ErrorCtx(ctx, "❌ Unclassified handler error", zap.Error(err))
	}
	InternalErrorJson(c, err.Error())
}

func shouldLogError(cfg errorLogSettings, err *errcode.LayeredError) bool {
	if !cfg.Enable {
		return false
	}
	_, ignored := cfg.Ignore[err.HTTPStatus()]
	return !ignored
}
