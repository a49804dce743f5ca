package deals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/middleware"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// FilterRequest is the body of POST /deals/filter.
type FilterRequest struct {
	Kind  string `form:"kind" json:"kind"`
	Value string `form:"value" json:"value"`
}

// Handler serves the listing and detail pages. Actions mutate the
// controller and redirect back to the listing, so a reload never re-posts.
type Handler struct {
	controller *Controller
	session    session.Reader
}

// NewHandler creates a new deals handler.
func NewHandler(controller *Controller, reader session.Reader) *Handler {
	return &Handler{controller: controller, session: reader}
}

// Home renders the listing (GET /). The first visit triggers the initial
// load; a visit after a failed load retries the same page and filters.
func (h *Handler) Home(c echo.Context) error {
	ctx := c.Request().Context()
	switch snap := h.controller.Snapshot(); snap.Status {
	case StatusIdle:
		h.controller.OnSignedChanged(ctx)
	case StatusError:
		_ = h.controller.LoadDeals(ctx, snap.Page, snap.Filters.Active(), nil)
	}
	s := h.session.Get()
	return middleware.Render(c, http.StatusOK, HomePage(h.controller.Snapshot(), s.IsAuthenticated()))
}

// Next loads the following page (POST /deals/next).
func (h *Handler) Next(c echo.Context) error {
	_ = h.controller.NextPage(c.Request().Context())
	return backToListing(c)
}

// Previous loads the preceding page (POST /deals/previous).
func (h *Handler) Previous(c echo.Context) error {
	_ = h.controller.PreviousPage(c.Request().Context())
	return backToListing(c)
}

// Filter applies one filter (POST /deals/filter).
func (h *Handler) Filter(c echo.Context) error {
	var req FilterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	// Load failures are shown by the listing's error state; only a bad
	// filter value is reported here.
	err := h.controller.SetFilter(c.Request().Context(), req.Kind, req.Value)
	if apperror.IsType(err, apperror.TypeBadRequest) {
		return err
	}
	return backToListing(c)
}

// Clear drops every filter (POST /deals/clear).
func (h *Handler) Clear(c echo.Context) error {
	_ = h.controller.ClearFilters(c.Request().Context())
	return backToListing(c)
}

// Detail renders one deal (GET /deal?id=...).
func (h *Handler) Detail(c echo.Context) error {
	d, err := h.controller.DealDetail(c.Request().Context(), c.QueryParam("id"))
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, DetailPage(d))
}

// ListingJSON returns the current listing snapshot (GET /api/v1/deals).
func (h *Handler) ListingJSON(c echo.Context) error {
	return c.JSON(http.StatusOK, h.controller.Snapshot())
}

func backToListing(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/")
}
