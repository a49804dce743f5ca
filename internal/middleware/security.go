package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// storefrontCSP allows no scripts. Styles are inline and deal thumbnails
// come from the stores' CDNs, so any https image is allowed.
var storefrontCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'none'",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' https: data:",
	"connect-src 'self'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}, "; ")

// SecurityHeaders sets the storefront's response headers. Pages embed the
// signed-in user name and the CSRF token, so no response may be cached.
// HSTS is only sent when the request arrived over TLS.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("Content-Security-Policy", storefrontCSP)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			// Store links leave the site; send only the origin.
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
			h.Set("Cache-Control", "no-store")

			if c.IsTLS() {
				h.Set("Strict-Transport-Security", "max-age=31536000")
			}

			return next(c)
		}
	}
}
