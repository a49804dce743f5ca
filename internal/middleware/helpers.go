package middleware

import (
	"bytes"
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector adds the layout data (Session snapshot, CSRF token, request
// ID, active path) to the render context. app.RegisterRoutes sets it.
var LayoutInjector func(echo.Context, context.Context) context.Context

// Render renders a page into a buffer and only then writes it with
// statusCode. A component that fails halfway returns its error with nothing
// written, so the error handler can still send the error page.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return err
	}
	return c.HTMLBlob(statusCode, buf.Bytes())
}
