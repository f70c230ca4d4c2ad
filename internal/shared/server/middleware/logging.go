package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		for _, key := range []string{"documentId", "propertyId", "clientId"} {
			if v := c.GetString(key); v != "" {
				fields[snake(key)] = v
			}
		}
		if v := c.GetString("statusTransition"); v != "" {
			fields["status_transition"] = v
		}
		telemetry.Info("request.complete", fields)
	}
}

func snake(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
