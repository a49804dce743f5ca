package deals

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/dealfinder/internal/templates/layouts"
)

// HomePage renders the deal listing with filters and paging for signed-in
// users, and a sign-in prompt for anonymous ones.
func HomePage(s State, authed bool) templ.Component {
	return layouts.Page("Deals", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := layouts.NewWriter(out)
		if authed {
			filterBar(ctx, w, s)
		}

		switch {
		case s.Status == StatusError:
			w.Raw(`<p class="alert" role="alert">Deals could not be loaded. Please try again later.</p>`)
		case len(s.Results) == 0:
			w.Raw(`<p class="muted">There isn't any deal.</p>`)
		default:
			w.Raw(`<ul class="deals">`)
			for _, d := range s.Results {
				card(w, d)
			}
			w.Raw(`</ul>`)
		}

		w.Raw(`<div class="pager">`)
		if authed {
			if s.Page > 1 {
				postButton(ctx, w, "/deals/previous", "Load previous")
			}
			if s.HasNext {
				postButton(ctx, w, "/deals/next", "Load more")
			}
		} else {
			w.Raw(`<p>Want more deals? <a href="/login">Sign in</a> or <a href="/register">register</a>.</p>`)
		}
		w.Raw(`</div>`)
		return w.Err()
	}))
}

func card(w *layouts.Writer, d Deal) {
	w.Raw(`<li class="card"><a`)
	w.Attr("href", "/deal?id="+url.QueryEscape(d.ID))
	w.Raw(`>`)
	if d.Thumb != "" {
		w.Raw(`<img`)
		w.Attr("src", d.Thumb)
		w.Attr("alt", d.Title)
		w.Raw(`>`)
	}
	w.Rawf(`</a><hr class="bar %s"><div class="body">`, StoreColor(d.StoreName))
	w.Rawf(`<h3>%s</h3><h4>%s</h4>`, templ.EscapeString(d.Title), templ.EscapeString(d.StoreName))
	w.Rawf(`<div class="price">%s</div>`, templ.EscapeString(FormatPrice(d.SalePrice)))
	w.Rawf(`<p>Instead of <span class="strike">%s</span></p>`, templ.EscapeString(FormatPrice(d.NormalPrice)))
	w.Raw(`</div></li>`)
}

// filterBar renders one small form per filter plus a reset button.
func filterBar(ctx context.Context, w *layouts.Writer, s State) {
	w.Raw(`<div class="filters">`)

	stores := make([]option, 0, len(s.Catalog.Stores))
	for _, st := range s.Catalog.Stores {
		stores = append(stores, option{value: string(st.ID), label: st.Name})
	}
	filterForm(ctx, w, FilterStore, "Store", s.Filters.StoreID, stores)

	var current string
	if s.Filters.MinPrice != nil {
		current = strconv.FormatFloat(*s.Filters.MinPrice, 'f', -1, 64)
	}
	prices := make([]option, 0, len(s.Catalog.Prices))
	for _, p := range s.Catalog.Prices {
		prices = append(prices, option{
			value: strconv.FormatFloat(float64(p), 'f', -1, 64),
			label: "from " + FormatPrice(p),
		})
	}
	filterForm(ctx, w, FilterMinPrice, "Price", current, prices)

	orderings := make([]option, 0, len(OrderingOptions))
	for _, o := range OrderingOptions {
		orderings = append(orderings, option{value: o, label: o})
	}
	filterForm(ctx, w, FilterOrdering, "Sort", s.Filters.Ordering, orderings)

	if s.Filters.Active() {
		postButton(ctx, w, "/deals/clear", "Clear filters")
	}
	w.Raw(`</div>`)
}

type option struct {
	value, label string
}

func filterForm(ctx context.Context, w *layouts.Writer, kind, label, current string, options []option) {
	w.Raw(`<form method="post" action="/deals/filter">`)
	w.CSRF(ctx)
	w.Rawf(`<input type="hidden" name="kind" value="%s">`, templ.EscapeString(kind))
	w.Rawf(`<label>%s <select name="value"><option value="">Any</option>`, templ.EscapeString(label))
	for _, o := range options {
		w.Raw(`<option`)
		w.Attr("value", o.value)
		if o.value == current {
			w.Raw(` selected`)
		}
		w.Rawf(`>%s</option>`, templ.EscapeString(o.label))
	}
	w.Raw(`</select></label> <button type="submit">Apply</button></form>`)
}

func postButton(ctx context.Context, w *layouts.Writer, action, label string) {
	w.Raw(`<form method="post"`)
	w.Attr("action", action)
	w.Raw(`>`)
	w.CSRF(ctx)
	w.Rawf(`<button type="submit">%s</button></form>`, templ.EscapeString(label))
}

// DetailPage renders a single deal with its store link.
func DetailPage(d *DealDetail) templ.Component {
	return layouts.Page(d.Title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := layouts.NewWriter(out)
		w.Raw(`<article class="card detail">`)
		if d.Thumb != "" {
			w.Raw(`<img`)
			w.Attr("src", d.Thumb)
			w.Attr("alt", d.Title)
			w.Raw(`>`)
		}
		w.Raw(`<div class="body">`)
		w.Rawf(`<h1>%s</h1>`, templ.EscapeString(d.Title))
		w.Rawf(`<span class="bar %s">%s</span>`, StoreColor(d.StoreName), templ.EscapeString(d.StoreName))
		w.Rawf(`<div class="price">%s</div>`, templ.EscapeString(FormatPrice(d.SalePrice)))
		w.Rawf(`<p class="strike">%s</p>`, templ.EscapeString(FormatPrice(d.NormalPrice)))

		if d.SteamRatingText != "" {
			w.Rawf(`<p>Steam Score: %s</p>`, templ.EscapeString(d.SteamRatingText))
		}
		if d.MetacriticScore != nil && *d.MetacriticScore > 0 {
			w.Rawf(`<p>Metacritic Score: %d/100</p>`, *d.MetacriticScore)
		} else {
			w.Raw(`<p class="alert">Metacritic score: not present</p>`)
		}
		if d.ReleaseDate != "" {
			w.Rawf(`<p>Release Date: %s</p>`, templ.EscapeString(FormatDate(d.ReleaseDate)))
		} else {
			w.Raw(`<p class="alert">Release date: not present</p>`)
		}
		if d.DealRating != "" {
			w.Rawf(`<p>Deal Rating: %s/10</p>`, templ.EscapeString(string(d.DealRating)))
		}
		w.Raw(`</div></article><div class="pager"><a href="/">&larr; Back to deals</a>`)
		if link := StoreURL(*d); link != "" {
			w.Raw(`<a target="_blank" rel="noopener noreferrer"`)
			w.Attr("href", link)
			w.Rawf(`>%s</a>`, templ.EscapeString(fmt.Sprintf("Open on %s", d.StoreName)))
		}
		w.Raw(`</div>`)
		return w.Err()
	}))
}
