package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/diarscribe/logger"
)

// slowRequest marks non-streaming requests worth a second look.
const slowRequest = 500 * time.Millisecond

// RequestLogger logs every request with method, path, status and duration.
// Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": duration.Milliseconds(),
				"bytes":       sw.written,
			}
			if duration > slowRequest && !sw.streamed {
				fields["slow"] = true
			}
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

var probePaths = []string{"/health", "/alive", "/ready", "/metrics"}

func isProbe(path string) bool {
	for _, p := range probePaths {
		if path == p || strings.HasSuffix(path, "/api"+p) {
			return true
		}
	}
	return false
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
