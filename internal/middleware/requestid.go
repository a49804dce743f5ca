package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
)

const contextKeyRequestID = "request_id"

// RequestID returns middleware that tags each request with an ID. An
// incoming X-Request-ID is reused; otherwise a UUID is generated. The ID is
// echoed in the response, stored on the Echo context, and placed on the
// request context so calls to the remote API forward it.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(apiclient.RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}

			c.Set(contextKeyRequestID, id)
			c.Response().Header().Set(apiclient.RequestIDHeader, id)
			c.SetRequest(req.WithContext(apiclient.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}
