package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/middleware"
	"github.com/keyxmakerx/dealfinder/internal/plugins/auth"
	"github.com/keyxmakerx/dealfinder/internal/plugins/deals"
	"github.com/keyxmakerx/dealfinder/internal/templates/layouts"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	middleware.LayoutInjector = a.injectLayout

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// auth plugin (public: login, register, logout). Sign-in changes
	// reload the listing through the deals controller.
	authHandler := auth.NewHandler(a.Auth, a.Session, a.Deals)
	auth.RegisterRoutes(e, authHandler)

	// deals plugin. Filter actions need a signed-in Session.
	dealsHandler := deals.NewHandler(a.Deals, a.Session)
	deals.RegisterRoutes(e, dealsHandler, auth.RequireSignedIn(a.Session))
}

// injectLayout copies the request's Session snapshot, CSRF token, request ID
// and path into the render context.
func (a *App) injectLayout(c echo.Context, ctx context.Context) context.Context {
	s := auth.GetSession(c)
	if s == nil {
		current := a.Session.Get()
		s = &current
	}
	ctx = layouts.SetIsAuthenticated(ctx, s.IsAuthenticated())
	ctx = layouts.SetUserName(ctx, s.Username())
	ctx = layouts.SetIsFirstRegistration(ctx, s.IsFirstRegistration)
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
	ctx = layouts.SetRequestID(ctx, middleware.GetRequestID(c))
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	return ctx
}
