package deals

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/sanitize"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// API is the subset of the HTTP client adapter the controller uses.
type API interface {
	Get(ctx context.Context, path string, q apiclient.Query, token string, out any) error
}

// Controller owns the listing state. Every query takes a sequence number
// and only the latest one may write its response, so a slow reply can
// never overwrite a newer listing. The filter catalog has its own sequence.
// The lock is never held across a network call.
type Controller struct {
	api     API
	session session.Reader

	mu         sync.Mutex
	seq        uint64
	catalogSeq uint64
	state      State
}

// NewController creates a controller with an empty page-1 listing.
func NewController(api API, reader session.Reader) *Controller {
	return &Controller{
		api:     api,
		session: reader,
		state:   State{Page: 1, Status: StatusIdle},
	}
}

// Snapshot returns a copy of the current listing state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Filters = c.state.Filters.clone()
	s.Results = append([]Deal(nil), c.state.Results...)
	s.Catalog.Stores = append([]StoreOption(nil), c.state.Catalog.Stores...)
	s.Catalog.Prices = append([]Price(nil), c.state.Catalog.Prices...)
	return s
}

// LoadDeals fetches one page of the listing. With useFilters and a signed-in
// Session it queries the filtered catalog using override (or the current
// filters when override is nil); otherwise the anonymous-safe catalog. On
// success Results, HasNext and Page are replaced together. On failure
// Results is cleared and Status becomes StatusError.
func (c *Controller) LoadDeals(ctx context.Context, page int, useFilters bool, override *Filters) error {
	if page < 1 {
		page = 1
	}
	token := c.session.Get().BearerToken()

	c.mu.Lock()
	filters := c.state.Filters.clone()
	if override != nil {
		filters = override.clone()
	}
	c.seq++
	seq := c.seq
	c.state.Status = StatusLoading
	c.mu.Unlock()

	filtered := useFilters && token != ""
	path := "/deals"
	if filtered {
		path = "/dealsFiltered"
	} else {
		filters = Filters{}
	}
	q := BuildQuery(filters, page)

	var resp listResponse
	err := c.api.Get(ctx, path, q, token, &resp)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		slog.Debug("dropping stale deal listing",
			slog.Uint64("seq", seq),
			slog.Uint64("latest", c.seq),
			slog.String("path", path),
		)
		return nil
	}

	if err != nil {
		c.state.Results = nil
		c.state.Status = StatusError
		slog.Warn("loading deals failed",
			slog.String("path", path),
			slog.Int("page", page),
			slog.Any("error", err),
		)
		return err
	}

	c.state.Results = normalizeDeals(resp.Deals)
	c.state.HasNext = resp.HasNext || resp.HasNextSnake
	c.state.Page = page
	c.state.UseFilter = filtered
	c.state.Status = StatusOK
	return nil
}

// BuildQuery renders filters and page in the order the API expects: store,
// min_price, ordering, page. Each parameter is omitted at its default.
func BuildQuery(f Filters, page int) apiclient.Query {
	var q apiclient.Query
	if f.StoreID != "" {
		q.Add("store", f.StoreID)
	}
	if f.MinPrice != nil {
		q.Add("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.Ordering != "" {
		q.Add("ordering", f.Ordering)
	}
	if page > 1 {
		q.Add("page", strconv.Itoa(page))
	}
	return q
}

// LoadFilterCatalog fetches the store and price options. It does nothing for
// an anonymous Session; on failure the previous catalog is kept. A reply
// that arrives after a newer load or a sign-out is dropped.
func (c *Controller) LoadFilterCatalog(ctx context.Context) error {
	token := c.session.Get().BearerToken()
	if token == "" {
		return nil
	}

	c.mu.Lock()
	c.catalogSeq++
	seq := c.catalogSeq
	c.mu.Unlock()

	var catalog FilterCatalog
	if err := c.api.Get(ctx, "/filtersData", apiclient.Query{}, token, &catalog); err != nil {
		slog.Warn("loading filter catalog failed", slog.Any("error", err))
		return err
	}

	stores := make([]StoreOption, 0, len(catalog.Stores))
	for _, s := range catalog.Stores {
		s.Name = sanitize.Text(s.Name)
		stores = append(stores, s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.catalogSeq {
		slog.Debug("dropping stale filter catalog",
			slog.Uint64("seq", seq),
			slog.Uint64("latest", c.catalogSeq),
		)
		return nil
	}
	c.state.Catalog = FilterCatalog{Stores: stores, Prices: catalog.Prices}
	return nil
}

// SetFilter updates one filter from its form value and reloads page 1 with
// the updated filters. An empty value clears that filter.
func (c *Controller) SetFilter(ctx context.Context, kind, value string) error {
	value = strings.TrimSpace(value)
	switch kind {
	case FilterStore:
		return c.SetStore(ctx, value)
	case FilterMinPrice:
		if value == "" {
			return c.SetMinPrice(ctx, nil)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return apperror.NewBadRequest("minimum price must be a non-negative number")
		}
		return c.SetMinPrice(ctx, &v)
	case FilterOrdering:
		return c.SetOrdering(ctx, value)
	default:
		return apperror.NewBadRequest(fmt.Sprintf("unknown filter %q", kind))
	}
}

// SetStore filters by store id.
func (c *Controller) SetStore(ctx context.Context, storeID string) error {
	return c.applyFilter(ctx, func(f *Filters) { f.StoreID = storeID })
}

// SetMinPrice filters by minimum sale price. nil clears the filter.
func (c *Controller) SetMinPrice(ctx context.Context, minPrice *float64) error {
	return c.applyFilter(ctx, func(f *Filters) {
		if minPrice == nil {
			f.MinPrice = nil
			return
		}
		v := *minPrice
		f.MinPrice = &v
	})
}

// SetOrdering sets the server-side sort key. The value is passed through
// verbatim.
func (c *Controller) SetOrdering(ctx context.Context, ordering string) error {
	return c.applyFilter(ctx, func(f *Filters) { f.Ordering = ordering })
}

// applyFilter mutates the filters, resets the page and loads page 1 with the
// new filters passed directly.
func (c *Controller) applyFilter(ctx context.Context, mutate func(*Filters)) error {
	c.mu.Lock()
	mutate(&c.state.Filters)
	c.state.Page = 1
	updated := c.state.Filters.clone()
	c.mu.Unlock()

	return c.LoadDeals(ctx, 1, true, &updated)
}

// ClearFilters drops every filter and reloads the unfiltered page 1.
func (c *Controller) ClearFilters(ctx context.Context) error {
	c.mu.Lock()
	c.state.Filters = Filters{}
	c.state.Page = 1
	c.mu.Unlock()

	return c.LoadDeals(ctx, 1, false, nil)
}

// NextPage loads the following page with the current filters.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	page := c.state.Page + 1
	useFilters := c.state.Filters.Active()
	c.mu.Unlock()

	return c.LoadDeals(ctx, page, useFilters, nil)
}

// PreviousPage loads the preceding page. At page 1 it does nothing.
func (c *Controller) PreviousPage(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Page <= 1 {
		c.mu.Unlock()
		return nil
	}
	page := c.state.Page - 1
	useFilters := c.state.Filters.Active()
	c.mu.Unlock()

	return c.LoadDeals(ctx, page, useFilters, nil)
}

// OnSignedChanged resets the view after sign-in, registration or sign-out:
// filters are cleared and page 1 is reloaded. When signed in the filter
// catalog is fetched in parallel; when signed out it is dropped.
func (c *Controller) OnSignedChanged(ctx context.Context) {
	authed := c.session.Get().IsAuthenticated()

	c.mu.Lock()
	c.state.Filters = Filters{}
	c.state.Page = 1
	if !authed {
		c.catalogSeq++
		c.state.Catalog = FilterCatalog{}
	}
	c.mu.Unlock()

	var wg conc.WaitGroup
	wg.Go(func() { _ = c.LoadDeals(ctx, 1, false, nil) })
	if authed {
		wg.Go(func() { _ = c.LoadFilterCatalog(ctx) })
	}
	wg.Wait()
}

// DealDetail fetches one deal. The id is URL-encoded before it is placed in
// the query, so it travels double-encoded; the API decodes it twice.
func (c *Controller) DealDetail(ctx context.Context, dealID string) (*DealDetail, error) {
	if strings.TrimSpace(dealID) == "" {
		return nil, apperror.NewBadRequest("deal id not provided")
	}

	var q apiclient.Query
	q.Add("deal_id", apiclient.EncodeComponent(dealID))

	var resp detailResponse
	err := c.api.Get(ctx, "/dealDetail", q, c.session.Get().BearerToken(), &resp)
	if err != nil {
		slog.Warn("loading deal detail failed", slog.String("deal_id", dealID), slog.Any("error", err))
		if respErr, ok := apiclient.AsResponseError(err); ok {
			switch respErr.StatusCode {
			case http.StatusNotFound:
				return nil, apperror.NewNotFound("Deal not found.")
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, apperror.NewUnauthorized("Sign in to see deal details.")
			}
			return nil, apperror.NewConnection(err)
		}
		return nil, err
	}
	if resp.Deal == nil {
		return nil, apperror.NewNotFound("Deal not found.")
	}

	d := *resp.Deal
	d.Deal = normalizeDeal(d.Deal)
	d.SteamRatingText = sanitize.Text(d.SteamRatingText)
	return &d, nil
}

func normalizeDeals(in []Deal) []Deal {
	out := make([]Deal, 0, len(in))
	for _, d := range in {
		out = append(out, normalizeDeal(d))
	}
	return out
}

// normalizeDeal strips markup from display text and drops unsafe
// thumbnail URLs.
func normalizeDeal(d Deal) Deal {
	d.Title = sanitize.Text(d.Title)
	d.StoreName = sanitize.Text(d.StoreName)
	d.Thumb = sanitize.URL(d.Thumb)
	return d
}
