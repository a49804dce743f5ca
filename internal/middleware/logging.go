// Package middleware holds the storefront's Echo middleware: request IDs,
// access logging, panic recovery, response headers, CSRF and rate limits.
// app.New installs the global chain; rate limits are attached per route.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// healthPath is polled by the container runtime and logged at debug level.
const healthPath = "/healthz"

// RequestLogger writes one access log line per request. Errors go through
// the error handler before logging, so the line carries the final status.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Int64("bytes", res.Size),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", GetRequestID(c)),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			slog.LogAttrs(req.Context(), accessLevel(req.URL.Path, res.Status), "request", attrs...)

			return nil
		}
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case path == healthPath:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
