package logging

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GinAccessLog routes per-request access logs through logrus so they share
// the proxy's formatter and file rotation. The log level follows the
// response status: 5xx at error, 4xx at warn, everything else at info.
func GinAccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}
		status := c.Writer.Status()

		entry := log.WithFields(log.Fields{
			"status":  status,
			"latency": time.Since(start).Truncate(time.Microsecond).String(),
			"client":  c.ClientIP(),
		})
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			entry = entry.WithField("errors", errs.String())
		}

		line := c.Request.Method + " " + path
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(line)
		case status >= http.StatusBadRequest:
			entry.Warn(line)
		default:
			entry.Info(line)
		}
	}
}

// GinRecovery converts handler panics into a 500 response and logs the
// stack trace instead of killing the connection.
func GinRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(log.Fields{
			"panic": recovered,
			"path":  c.Request.URL.Path,
			"stack": string(debug.Stack()),
		}).Error("recovered from handler panic")

		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
