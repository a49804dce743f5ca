package deals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// --- Mock API ---

type apiCall struct {
	path  string
	query string
	token string
}

// mockAPI implements API, recording every call.
type mockAPI struct {
	mu    sync.Mutex
	calls []apiCall
	getFn func(ctx context.Context, path string, q apiclient.Query, token string, out any) error
}

func (m *mockAPI) Get(ctx context.Context, path string, q apiclient.Query, token string, out any) error {
	m.mu.Lock()
	m.calls = append(m.calls, apiCall{path: path, query: q.Encode(), token: token})
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx, path, q, token, out)
	}
	return respond(out, listResponse{})
}

func (m *mockAPI) recorded() []apiCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]apiCall(nil), m.calls...)
}

// respond decodes v into out the way the real client would.
func respond(out any, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// fakeSession implements session.Reader.
type fakeSession struct {
	s session.Session
}

func (f *fakeSession) Get() session.Session { return f.s }

func anonymous() *fakeSession { return &fakeSession{s: session.Defaults()} }

func signedIn() *fakeSession {
	return &fakeSession{s: session.Session{
		Signed:      true,
		User:        &session.User{Username: "alice"},
		AccessToken: "tok",
	}}
}

func listing(ids ...string) map[string]any {
	deals := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		deals = append(deals, map[string]any{
			"deal_id":      id,
			"title":        "Game " + id,
			"store_name":   "Steam",
			"sale_price":   "4.99",
			"normal_price": "19.99",
			"thumb":        "https://cdn.example.com/" + id + ".jpg",
		})
	}
	return map[string]any{"deals": deals, "hasNext": true}
}

func resultIDs(s State) []string {
	ids := make([]string, 0, len(s.Results))
	for _, d := range s.Results {
		ids = append(ids, d.ID)
	}
	return ids
}

// --- Tests ---

func TestLoadDeals_AnonymousListing(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deals":[{"deal_id":"d1","title":"Doom","store_name":"GOG","sale_price":"1.50","normal_price":"10.00","thumb":""}],"hasNext":true}`))
	}))
	defer srv.Close()

	c := NewController(apiclient.New(srv.URL, 5*time.Second), anonymous())
	if err := c.LoadDeals(context.Background(), 1, false, nil); err != nil {
		t.Fatalf("LoadDeals: %v", err)
	}

	if gotPath != "/deals" {
		t.Errorf("path = %q, want /deals", gotPath)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
	if gotAuth != "" {
		t.Errorf("anonymous request carried Authorization %q", gotAuth)
	}

	s := c.Snapshot()
	if len(s.Results) != 1 || s.Results[0].ID != "d1" {
		t.Fatalf("results = %+v, want [d1]", s.Results)
	}
	if !s.HasNext || s.Page != 1 || s.Status != StatusOK {
		t.Errorf("unexpected state: page=%d hasNext=%v status=%s", s.Page, s.HasNext, s.Status)
	}
	if s.Results[0].SalePrice != 1.5 {
		t.Errorf("sale price = %v, want 1.5", s.Results[0].SalePrice)
	}
}

func TestSetFilter_BuildsOrderedFilteredQuery(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, signedIn())
	ctx := context.Background()

	if err := c.SetFilter(ctx, FilterStore, "s2"); err != nil {
		t.Fatalf("SetFilter store: %v", err)
	}
	if err := c.SetFilter(ctx, FilterMinPrice, "10"); err != nil {
		t.Fatalf("SetFilter min_price: %v", err)
	}

	calls := api.recorded()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	second := calls[1]
	if second.path != "/dealsFiltered" {
		t.Errorf("path = %q, want /dealsFiltered", second.path)
	}
	if second.query != "store=s2&min_price=10" {
		t.Errorf("query = %q, want store=s2&min_price=10", second.query)
	}
	if second.token != "tok" {
		t.Errorf("token = %q, want tok", second.token)
	}
}

func TestSetFilter_ResetsPageAndOmitsDefaults(t *testing.T) {
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		return respond(out, listing("x"))
	}}
	c := NewController(api, signedIn())
	ctx := context.Background()

	_ = c.NextPage(ctx)
	_ = c.NextPage(ctx)
	if got := c.Snapshot().Page; got != 3 {
		t.Fatalf("page = %d, want 3", got)
	}

	if err := c.SetOrdering(ctx, "title"); err != nil {
		t.Fatalf("SetOrdering: %v", err)
	}
	calls := api.recorded()
	last := calls[len(calls)-1]
	if last.query != "ordering=title" {
		t.Errorf("query = %q, want ordering=title", last.query)
	}
	if got := c.Snapshot().Page; got != 1 {
		t.Errorf("page = %d, want 1 after filter change", got)
	}
}

func TestSetFilter_ClearingMinPrice(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, signedIn())
	ctx := context.Background()

	_ = c.SetFilter(ctx, FilterMinPrice, "5")
	_ = c.SetFilter(ctx, FilterMinPrice, "")

	calls := api.recorded()
	if calls[1].query != "" {
		t.Errorf("query = %q, want empty after clearing", calls[1].query)
	}
	if c.Snapshot().Filters.MinPrice != nil {
		t.Error("min price should be cleared")
	}
}

func TestSetFilter_Invalid(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, signedIn())
	ctx := context.Background()

	for _, tc := range []struct{ kind, value string }{
		{FilterMinPrice, "cheap"},
		{FilterMinPrice, "-1"},
		{"genre", "rpg"},
	} {
		err := c.SetFilter(ctx, tc.kind, tc.value)
		if !apperror.IsType(err, apperror.TypeBadRequest) {
			t.Errorf("SetFilter(%q, %q) = %v, want bad request", tc.kind, tc.value, err)
		}
	}
	if n := len(api.recorded()); n != 0 {
		t.Errorf("invalid filters must not query the API, got %d calls", n)
	}
}

func TestBuildQuery(t *testing.T) {
	price := 9.5
	tests := []struct {
		name    string
		filters Filters
		page    int
		want    string
	}{
		{"defaults", Filters{}, 1, ""},
		{"page only", Filters{}, 2, "page=2"},
		{"all", Filters{StoreID: "1", MinPrice: &price, Ordering: "title"}, 3, "store=1&min_price=9.5&ordering=title&page=3"},
		{"ordering only", Filters{Ordering: "sale_price"}, 1, "ordering=sale_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.filters, tt.page).Encode(); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreviousPage_AtFirstPageMakesNoCall(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, signedIn())
	before := c.Snapshot()

	if err := c.PreviousPage(context.Background()); err != nil {
		t.Fatalf("PreviousPage: %v", err)
	}
	if n := len(api.recorded()); n != 0 {
		t.Errorf("expected no API call, got %d", n)
	}
	after := c.Snapshot()
	if after.Page != before.Page || after.Status != before.Status || len(after.Results) != len(before.Results) {
		t.Errorf("state changed: before=%+v after=%+v", before, after)
	}
}

func TestPreviousPage_GoesBackOnePage(t *testing.T) {
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		return respond(out, listing("x"))
	}}
	c := NewController(api, signedIn())
	ctx := context.Background()

	_ = c.NextPage(ctx)
	_ = c.NextPage(ctx)
	if err := c.PreviousPage(ctx); err != nil {
		t.Fatalf("PreviousPage: %v", err)
	}

	calls := api.recorded()
	if last := calls[len(calls)-1]; last.query != "page=2" || last.path != "/deals" {
		t.Errorf("last call = %+v, want /deals?page=2", last)
	}
	if got := c.Snapshot().Page; got != 2 {
		t.Errorf("page = %d, want 2", got)
	}
}

func TestNextPage_KeepsActiveFilters(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, signedIn())
	ctx := context.Background()

	_ = c.SetStore(ctx, "7")
	_ = c.NextPage(ctx)

	calls := api.recorded()
	last := calls[len(calls)-1]
	if last.path != "/dealsFiltered" || last.query != "store=7&page=2" {
		t.Errorf("last call = %+v, want /dealsFiltered?store=7&page=2", last)
	}
}

func TestClearFilters(t *testing.T) {
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		return respond(out, listing("x"))
	}}
	c := NewController(api, signedIn())
	ctx := context.Background()

	_ = c.SetStore(ctx, "3")
	_ = c.NextPage(ctx)
	if err := c.ClearFilters(ctx); err != nil {
		t.Fatalf("ClearFilters: %v", err)
	}

	calls := api.recorded()
	last := calls[len(calls)-1]
	if last.path != "/deals" || last.query != "" {
		t.Errorf("last call = %+v, want plain /deals", last)
	}
	s := c.Snapshot()
	if s.Filters.Active() || s.Page != 1 || s.UseFilter {
		t.Errorf("state after clear: filters=%+v page=%d filtered=%v", s.Filters, s.Page, s.UseFilter)
	}
}

func TestLoadDeals_FailureClearsResults(t *testing.T) {
	fail := false
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		if fail {
			return apperror.NewConnection(errors.New("down"))
		}
		return respond(out, listing("a", "b"))
	}}
	c := NewController(api, anonymous())
	ctx := context.Background()

	_ = c.LoadDeals(ctx, 1, false, nil)
	fail = true
	err := c.LoadDeals(ctx, 1, false, nil)
	if !apperror.IsType(err, apperror.TypeConnection) {
		t.Fatalf("err = %v, want connection error", err)
	}

	s := c.Snapshot()
	if len(s.Results) != 0 {
		t.Errorf("results = %v, want empty after failure", resultIDs(s))
	}
	if s.Status != StatusError {
		t.Errorf("status = %s, want error", s.Status)
	}
}

func TestLoadDeals_StaleResponseIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(entered)
			<-release
			return respond(out, listing("old"))
		}
		return respond(out, listing("new"))
	}}
	c := NewController(api, signedIn())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SetStore(ctx, "1") }()
	<-entered

	if err := c.SetStore(ctx, "2"); err != nil {
		t.Fatalf("second SetStore: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first SetStore: %v", err)
	}

	s := c.Snapshot()
	if ids := resultIDs(s); len(ids) != 1 || ids[0] != "new" {
		t.Errorf("results = %v, want [new]", ids)
	}
	if s.Filters.StoreID != "2" {
		t.Errorf("store filter = %q, want 2", s.Filters.StoreID)
	}
}

func TestLoadDeals_FiltersNeedSignIn(t *testing.T) {
	api := &mockAPI{}
	price := 3.0
	c := NewController(api, anonymous())

	_ = c.LoadDeals(context.Background(), 1, true, &Filters{MinPrice: &price})

	calls := api.recorded()
	if calls[0].path != "/deals" || calls[0].query != "" || calls[0].token != "" {
		t.Errorf("anonymous filtered load = %+v, want plain /deals", calls[0])
	}
}

func TestLoadDeals_AcceptsSnakeCaseHasNext(t *testing.T) {
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		return respond(out, map[string]any{"deals": []any{}, "has_next": true})
	}}
	c := NewController(api, anonymous())
	_ = c.LoadDeals(context.Background(), 1, false, nil)

	if !c.Snapshot().HasNext {
		t.Error("has_next should set HasNext")
	}
}

func TestLoadDeals_SanitizesDeals(t *testing.T) {
	api := &mockAPI{getFn: func(_ context.Context, _ string, _ apiclient.Query, _ string, out any) error {
		return respond(out, map[string]any{"deals": []map[string]any{{
			"deal_id":    "x",
			"title":      "<b>Bold</b> Game",
			"store_name": "Steam",
			"thumb":      "javascript:alert(1)",
		}}})
	}}
	c := NewController(api, anonymous())
	_ = c.LoadDeals(context.Background(), 1, false, nil)

	d := c.Snapshot().Results[0]
	if d.Title != "Bold Game" {
		t.Errorf("title = %q, want %q", d.Title, "Bold Game")
	}
	if d.Thumb != "" {
		t.Errorf("unsafe thumb kept: %q", d.Thumb)
	}
}

func TestLoadFilterCatalog(t *testing.T) {
	t.Run("anonymous is a no-op", func(t *testing.T) {
		api := &mockAPI{}
		c := NewController(api, anonymous())
		if err := c.LoadFilterCatalog(context.Background()); err != nil {
			t.Fatalf("LoadFilterCatalog: %v", err)
		}
		if n := len(api.recorded()); n != 0 {
			t.Errorf("expected no call, got %d", n)
		}
	})

	t.Run("failure keeps previous catalog", func(t *testing.T) {
		fail := false
		api := &mockAPI{getFn: func(_ context.Context, path string, _ apiclient.Query, _ string, out any) error {
			if fail {
				return apperror.NewConnection(errors.New("down"))
			}
			return respond(out, map[string]any{
				"stores": []map[string]any{{"id": 1, "name": "Steam"}, {"id": "7", "name": "GOG"}},
				"prices": []any{5, "10.50"},
			})
		}}
		c := NewController(api, signedIn())
		ctx := context.Background()

		if err := c.LoadFilterCatalog(ctx); err != nil {
			t.Fatalf("LoadFilterCatalog: %v", err)
		}
		fail = true
		if err := c.LoadFilterCatalog(ctx); err == nil {
			t.Fatal("expected error")
		}

		cat := c.Snapshot().Catalog
		if len(cat.Stores) != 2 || cat.Stores[0].ID != "1" || cat.Stores[1].Name != "GOG" {
			t.Errorf("stores = %+v", cat.Stores)
		}
		if len(cat.Prices) != 2 || cat.Prices[1] != 10.5 {
			t.Errorf("prices = %+v", cat.Prices)
		}
		if calls := api.recorded(); calls[0].path != "/filtersData" || calls[0].token != "tok" {
			t.Errorf("call = %+v", calls[0])
		}
	})
}

func TestLoadFilterCatalog_StaleReplyAfterSignOutIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	api := &mockAPI{getFn: func(_ context.Context, path string, _ apiclient.Query, _ string, out any) error {
		if path == "/filtersData" {
			close(entered)
			<-release
			return respond(out, map[string]any{"stores": []map[string]any{{"id": "1", "name": "Steam"}}, "prices": []any{5}})
		}
		return respond(out, listing("a"))
	}}
	sess := signedIn()
	c := NewController(api, sess)

	done := make(chan error, 1)
	go func() { done <- c.LoadFilterCatalog(context.Background()) }()
	<-entered

	sess.s = session.Defaults()
	c.OnSignedChanged(context.Background())
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("LoadFilterCatalog: %v", err)
	}

	if cat := c.Snapshot().Catalog; len(cat.Stores) != 0 || len(cat.Prices) != 0 {
		t.Errorf("catalog = %+v, want empty after sign-out", cat)
	}
}

func TestOnSignedChanged(t *testing.T) {
	newAPI := func() *mockAPI {
		return &mockAPI{getFn: func(_ context.Context, path string, _ apiclient.Query, _ string, out any) error {
			if path == "/filtersData" {
				return respond(out, map[string]any{"stores": []map[string]any{{"id": "1", "name": "Steam"}}, "prices": []any{5}})
			}
			return respond(out, listing("a"))
		}}
	}

	t.Run("signed in loads listing and catalog", func(t *testing.T) {
		api := newAPI()
		c := NewController(api, signedIn())
		_ = c.SetStore(context.Background(), "9")

		c.OnSignedChanged(context.Background())

		s := c.Snapshot()
		if s.Filters.Active() {
			t.Error("filters should be cleared")
		}
		if len(s.Catalog.Stores) != 1 {
			t.Errorf("catalog not loaded: %+v", s.Catalog)
		}
		var sawDeals bool
		for _, call := range api.recorded()[1:] {
			if call.path == "/deals" && call.query == "" {
				sawDeals = true
			}
		}
		if !sawDeals {
			t.Errorf("expected unfiltered page-1 load, calls=%+v", api.recorded())
		}
	})

	t.Run("signed out drops catalog", func(t *testing.T) {
		api := newAPI()
		sess := signedIn()
		c := NewController(api, sess)
		_ = c.LoadFilterCatalog(context.Background())

		sess.s = session.Defaults()
		c.OnSignedChanged(context.Background())

		s := c.Snapshot()
		if len(s.Catalog.Stores) != 0 {
			t.Errorf("catalog should be cleared, got %+v", s.Catalog)
		}
		for _, call := range api.recorded()[1:] {
			if call.path == "/filtersData" {
				t.Error("anonymous reload must not fetch the catalog")
			}
		}
	})
}

func TestDealDetail_DoubleEncodesID(t *testing.T) {
	const id = "a b/c=+"
	var rawQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		once := r.URL.Query().Get("deal_id")
		twice, err := url.QueryUnescape(once)
		if err != nil || twice != id {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"deal":{"deal_id":"a b/c=+","title":"Hades","store_name":"Steam","sale_price":"12.49","normal_price":"24.99","thumb":"https://x/y.jpg","metacritic_score":93,"steam_app_id":1145360,"deal_rating":"9.5"}}`))
	}))
	defer srv.Close()

	c := NewController(apiclient.New(srv.URL, 5*time.Second), signedIn())
	d, err := c.DealDetail(context.Background(), id)
	if err != nil {
		t.Fatalf("DealDetail: %v (raw query %q)", err, rawQuery)
	}

	if want := "deal_id=" + url.QueryEscape(apiclient.EncodeComponent(id)); rawQuery != want {
		t.Errorf("raw query = %q, want %q", rawQuery, want)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want bearer", gotAuth)
	}
	if d.Title != "Hades" || d.SteamAppID != "1145360" || d.DealRating != "9.5" {
		t.Errorf("unexpected detail: %+v", d)
	}
	if d.MetacriticScore == nil || *d.MetacriticScore != 93 {
		t.Errorf("metacritic = %v, want 93", d.MetacriticScore)
	}
}

func TestDealDetail_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"not found", http.StatusNotFound, `{"detail":"Not found."}`, apperror.TypeNotFound},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"no token"}`, apperror.TypeUnauthorized},
		{"bad request", http.StatusBadRequest, `{"error":"deal_id parameter required"}`, apperror.TypeConnection},
		{"server error", http.StatusInternalServerError, ``, apperror.TypeConnection},
		{"missing deal", http.StatusOK, `{}`, apperror.TypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewController(apiclient.New(srv.URL, 5*time.Second), anonymous())
			_, err := c.DealDetail(context.Background(), "x")
			if !apperror.IsType(err, tt.want) {
				t.Errorf("err = %v, want type %s", err, tt.want)
			}
		})
	}
}

func TestDealDetail_EmptyID(t *testing.T) {
	api := &mockAPI{}
	c := NewController(api, anonymous())
	if _, err := c.DealDetail(context.Background(), " "); !apperror.IsType(err, apperror.TypeBadRequest) {
		t.Errorf("err = %v, want bad request", err)
	}
	if len(api.recorded()) != 0 {
		t.Error("empty id must not query the API")
	}
}
