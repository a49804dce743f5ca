package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/apperror"
)

// Recovery turns a panic in a storefront handler into an internal error, so
// the visitor gets the standard error page (or JSON under /api/) instead of
// a dropped connection.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				req := c.Request()
				slog.Error("handler panicked",
					slog.Any("panic", r),
					slog.String("route", c.Path()),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.String("remote_ip", c.RealIP()),
					slog.String("request_id", GetRequestID(c)),
					slog.String("stack", string(debug.Stack())),
				)
				returnErr = apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", req.Method, req.URL.Path, r))
			}()

			return next(c)
		}
	}
}
