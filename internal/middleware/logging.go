package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs each request with method, path, status, duration and
// remote IP. 5xx log at error level, 4xx at warn, everything else at info.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []slog.Attr{
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", c.RealIP()),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}

			switch {
			case status >= 500:
				logger.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			case status >= 400:
				logger.LogAttrs(c.Request().Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}
			return nil
		}
	}
}
