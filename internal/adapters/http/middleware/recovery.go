package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kudipay/walletd/internal/adapters/http/common"
)

// Recovery turns a handler panic into a logged 500 instead of a dropped
// connection.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogAttrs(c.Request.Context(), slog.LevelError, "panic recovered",
					slog.String("error", fmt.Sprintf("%v", r)),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", common.GetRequestID(c)),
					slog.String("stack", string(debug.Stack())),
				)

				c.Abort()
				common.Error(c, http.StatusInternalServerError, &common.APIError{
					Code:    common.ErrCodeInternal,
					Message: "an unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}
