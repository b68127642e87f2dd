// Package middleware holds the HTTP cross-cutting concerns: request ids,
// structured request logging, panic recovery and Prometheus metrics.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/adapters/http/common"
)

// RequestIDHeader is the inbound/outbound request id header.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to every request: the client's
// X-Request-ID when present, a fresh UUID otherwise. The id is echoed back
// in the response headers and threaded into every log line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(common.RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
