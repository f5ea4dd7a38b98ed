package middleware

import (
	"giftcast/pkg/logger"
	"giftcast/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

const HeaderRequestID = "X-Request-ID"

// RequestLoggerMiddleware tags each request with an id, echoes it back and
// logs the finished request.
func RequestLoggerMiddleware(cl *logger.ContextLogger, clock clockwork.Clock) gin.HandlerFunc {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = utils.GenerateRequestID()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		start := clock.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		cl.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), clock.Since(start))
	}
}
