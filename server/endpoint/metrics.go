package endpoint

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// StatsFunc contributes a named section to the /metrics payload.
type StatsFunc func(ctx context.Context) (name string, stats any)

// Metrics reports runtime memory and goroutine counts plus any extra
// sections, such as job slot usage.
func Metrics(extra ...StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		body := gin.H{
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb":       m.Alloc >> 20,
				"total_alloc_mb": m.TotalAlloc >> 20,
				"sys_mb":         m.Sys >> 20,
				"gc_runs":        m.NumGC,
			},
		}
		for _, fn := range extra {
			name, stats := fn(c.Request.Context())
			body[name] = stats
		}
		c.JSON(http.StatusOK, body)
	}
}
