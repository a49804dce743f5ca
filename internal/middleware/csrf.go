package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/templates/layouts"
)

const (
	csrfTokenBytes = 32
	csrfCookieName = "dealfinder_csrf"
	csrfHeaderName = "X-CSRF-Token"

	contextKeyCSRF = "csrf_token"
)

// CSRF returns middleware implementing the double-submit cookie pattern.
// Every form on the storefront (sign-in, filters, paging, sign-out) posts
// back the cookie value in a hidden field; a mismatch is rejected with 403.
// The JSON endpoints under /api/ are read-only and skipped.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			var cookieToken string
			if cookie, err := req.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
			} else {
				token, genErr := newCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}
				c.SetCookie(&http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   req.TLS != nil,
					SameSite: http.SameSiteStrictMode,
				})
				cookieToken = token
			}
			c.Set(contextKeyCSRF, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(layouts.CSRFFieldName)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}
			return next(c)
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the token set by CSRF for this request.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(contextKeyCSRF).(string)
	return token
}
