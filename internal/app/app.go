// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (Session store, API client, Echo
// instance) and wires the auth and deals plugins together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/config"
	"github.com/keyxmakerx/dealfinder/internal/middleware"
	"github.com/keyxmakerx/dealfinder/internal/plugins/auth"
	"github.com/keyxmakerx/dealfinder/internal/plugins/deals"
	"github.com/keyxmakerx/dealfinder/internal/session"
	"github.com/keyxmakerx/dealfinder/internal/templates/layouts"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// Session is the process-wide client Session.
	Session *session.Store

	// Auth is the only writer of Session.
	Auth auth.AuthService

	// Deals owns the listing state.
	Deals *deals.Controller

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, store *session.Store, api *apiclient.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// The storefront is served directly, so the peer address is the client.
	// Rate limiting keys on it.
	e.IPExtractor = echo.ExtractIPDirect()

	app := &App{
		Config:  cfg,
		Session: store,
		Auth:    auth.NewAuthService(api, store),
		Deals:   deals.NewController(api, store),
		Echo:    e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (session
// snapshot) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request ID before logging so every log line carries it.
	a.Echo.Use(middleware.RequestID())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CSRF -- double-submit cookie pattern on all state-changing requests.
	a.Echo.Use(middleware.CSRF())

	// Snapshot the Session once per request for handlers and the layout.
	a.Echo.Use(auth.LoadSession(a.Session))
}

// Bootstrap runs the startup checks that talk to the remote API. Failures
// are logged and never stop the server.
func (a *App) Bootstrap(ctx context.Context) {
	a.Auth.CheckAdminBootstrap(ctx)

	s := a.Session.Get()
	if !s.IsAuthenticated() {
		return
	}
	if exp, ok := session.TokenExpiry(s.AccessToken); ok && exp.Before(timeNow()) {
		// Token renewal is not implemented; the API will reject the token
		// and the user has to sign in again.
		slog.Warn("persisted access token has expired",
			slog.String("username", s.Username()),
			slog.Time("expired_at", exp),
		)
		_ = a.Auth.RenewToken(ctx)
	}
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses, and renders error pages for
// browser requests or JSON for API requests.
//
// For 401 errors on browser requests, we redirect to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"

	// Check if it's our domain error type.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			level := slog.LevelError
			if appErr.Type == apperror.TypeConnection {
				level = slog.LevelWarn
			}
			slog.Log(c.Request().Context(), level, "request failed",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = defaultErrorMessage(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	}

	// API requests always get JSON.
	if isAPIRequest(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	// Regular browser 401 -- redirect to login page.
	if code == http.StatusUnauthorized {
		_ = c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err := middleware.Render(c, code, layouts.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page failed", slog.Any("error", err))
		_ = c.String(code, message)
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to sign in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusBadGateway:
		return "The deal service could not be reached."
	default:
		return "An unexpected error occurred."
	}
}

// isAPIRequest returns true if the request is targeting the JSON API.
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting storefront",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("api", a.Config.API.BaseURL),
	)
	return a.Echo.Start(addr)
}
