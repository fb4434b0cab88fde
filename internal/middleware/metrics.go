package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adiwidodo/classadmin-api/internal/service"
)

// Metrics returns middleware that times each request and feeds the HTTP
// collectors. Observations are labeled by route template so path
// parameters (schedule ids, dates) cannot explode label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched routes collapse into one label instead of one
			// series per scanned path.
			route = "unmatched"
		}
		if route == "/metrics" {
			// Scrapes of the metrics endpoint itself are not workload.
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
