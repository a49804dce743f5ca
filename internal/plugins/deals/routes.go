package deals

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the listing and detail routes. requireSignedIn
// guards the filter actions, which query the authenticated catalog.
func RegisterRoutes(e *echo.Echo, h *Handler, requireSignedIn echo.MiddlewareFunc) {
	e.GET("/", h.Home)
	e.GET("/deal", h.Detail)

	e.POST("/deals/next", h.Next)
	e.POST("/deals/previous", h.Previous)

	e.POST("/deals/filter", h.Filter, requireSignedIn)
	e.POST("/deals/clear", h.Clear, requireSignedIn)

	e.GET("/api/v1/deals", h.ListingJSON)
}
