// internal/interfaces/http/middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// Logger returns a gin.HandlerFunc that logs HTTP requests
func Logger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id":    GetRequestID(c),
			"method":        c.Request.Method,
			"path":          path,
			"route":         c.FullPath(),
			"status_code":   c.Writer.Status(),
			"latency":       time.Since(start).String(),
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
			"response_size": c.Writer.Size(),
		})
		if userID, ok := GetUserIDFromContext(c); ok {
			entry = entry.WithField("user_id", userID)
		}

		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("HTTP request completed with server error")
		} else if status >= 400 {
			entry.Warn("HTTP request completed with client error")
		} else {
			entry.Info("HTTP request completed successfully")
		}
	}
}

// Recovery turns panics into a 500 and logs them
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		}).Error("panic recovered")
		abortWith(c, apperrors.CodeInternal, "Internal server error")
	})
}
