package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/service"
)

// Metrics captures request duration and status for every served route.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)
	}
}
