package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/registrar-api/internal/service"
)

// Metrics returns middleware that records request counts and latency on the
// metrics service. Unmatched routes are observed under their raw path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
