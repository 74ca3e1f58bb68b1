package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// RequestLogger writes one entry per request at debug level, and at warn for
// server errors.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			entry := logger.WithFields(log.Fields{
				"method":   c.Request().Method,
				"route":    c.Path(),
				"status":   status,
				"total_ms": float64(time.Since(start).Microseconds()) / 1000,
			})
			if status >= 500 {
				entry.Warn("http.request")
			} else {
				entry.Debug("http.request")
			}
			return err
		}
	}
}
