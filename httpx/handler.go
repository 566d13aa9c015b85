package httpx

import (
	"github.com/gin-gonic/gin"
)

// HandlerFunc is a typed handler: req is parsed and validated before the
// handler runs, the returned value is wrapped in the success envelope.
type HandlerFunc[Req any, Resp any] func(c *gin.Context, req *Req) (*Resp, error)

// Wrap adapts a typed handler into a gin.HandlerFunc: parse, validate
// (when Req implements Validatable), call, respond. Errors go through
// HandleError.
func Wrap[Req any, Resp any](handler HandlerFunc[Req, Resp]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := Parse(c, &req); err != nil {
			HandleError(c, err)
			return
		}

		if validatableReq, ok := any(&req).(Validatable); ok {
			if err := ValidateRequest(validatableReq); err != nil {
				HandleError(c, err)
				return
			}
		}

		resp, err := handler(c, &req)
		if err != nil {
			HandleError(c, err)
			return
		}

		OkJson(c, resp)
	}
}
