package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/session"
)

// contextKeySession stores the request's Session snapshot in the Echo
// context.
const contextKeySession = "auth_session"

// LoadSession returns middleware that snapshots the client Session into the
// Echo context so handlers and the layout see one consistent value for the
// whole request.
func LoadSession(reader session.Reader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := reader.Get()
			c.Set(contextKeySession, &s)
			return next(c)
		}
	}
}

// RequireSignedIn returns middleware that rejects anonymous requests. The
// filtered listing and the filter catalog need a bearer token, so routes
// driving them sit behind this.
func RequireSignedIn(reader session.Reader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := GetSession(c)
			if s == nil {
				current := reader.Get()
				s = &current
			}
			if !s.IsAuthenticated() {
				return handleUnauthenticated(c)
			}
			return next(c)
		}
	}
}

// handleUnauthenticated returns the appropriate response for unauthenticated
// requests: redirect for browsers, 401 JSON for API clients.
func handleUnauthenticated(c echo.Context) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// --- Exported getters for other plugins ---

// GetSession retrieves the Session snapshot taken by LoadSession. Returns
// nil if the middleware was not applied.
func GetSession(c echo.Context) *session.Session {
	s, ok := c.Get(contextKeySession).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// isAPIRequest returns true if the request targets the /api/ path.
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
