package middleware

import (
	"log/slog"
	"time"

	"momentum-backtest/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request and records request metrics when m is set.
func Logger(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if m != nil {
			m.ObserveRequest(c.Request.Method, route, status, elapsed)
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"elapsed", elapsed.String(),
			"client_ip", c.ClientIP(),
		)
	}
}
