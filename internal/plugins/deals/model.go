// Package deals is the Deal Query Controller: it builds paginated, filtered
// and ordered queries against the remote deal catalog, keeps the listing
// state the home page renders, and loads single-deal details.
package deals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Filter kinds accepted by SetFilter and the filter form.
const (
	FilterStore    = "store"
	FilterMinPrice = "min_price"
	FilterOrdering = "ordering"
)

// OrderingOptions lists the sort keys the API understands, in the order the
// sort selector shows them.
var OrderingOptions = []string{
	"deal_rating",
	"sale_price",
	"normal_price",
	"title",
	"created_at",
	"metacritic_score",
}

// Price is a decimal amount. The API sends prices as decimal strings
// ("12.99"); numbers and null are accepted too.
type Price float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	s, err := flexString(data)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if s == "" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	*p = Price(f)
	return nil
}

// Text is a string that may arrive as a JSON string, number or null. Store
// ids, Steam app ids and deal ratings are sent either way.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, err := flexString(data)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// flexString decodes a JSON string, number or null into its text form.
func flexString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Deal is one entry of a listing. Display order is the server's.
type Deal struct {
	ID          string `json:"deal_id"`
	Title       string `json:"title"`
	StoreName   string `json:"store_name"`
	SalePrice   Price  `json:"sale_price"`
	NormalPrice Price  `json:"normal_price"`
	Thumb       string `json:"thumb"`
}

// DealDetail is the full record returned by the detail endpoint. Optional
// fields are zero when the API omits them.
type DealDetail struct {
	Deal
	MetacriticScore *int   `json:"metacritic_score"`
	ReleaseDate     string `json:"release_date"`
	LastChange      string `json:"last_change"`
	DealRating      Text   `json:"deal_rating"`
	SteamAppID      Text   `json:"steam_app_id"`
	SteamRatingText string `json:"steam_rating_text"`
	StoreID         Text   `json:"store"`
}

// Filters narrows the authenticated listing. The zero value means "no
// filter".
type Filters struct {
	StoreID  string
	MinPrice *float64
	Ordering string
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f.StoreID != "" || f.MinPrice != nil || f.Ordering != ""
}

// clone returns a copy that shares no pointers with f.
func (f Filters) clone() Filters {
	if f.MinPrice != nil {
		v := *f.MinPrice
		f.MinPrice = &v
	}
	return f
}

// StoreOption is one selectable store in the filter catalog.
type StoreOption struct {
	ID   Text   `json:"id"`
	Name string `json:"name"`
}

// FilterCatalog holds the stores and minimum-price thresholds offered to
// signed-in users.
type FilterCatalog struct {
	Stores []StoreOption `json:"stores"`
	Prices []Price       `json:"prices"`
}

// Status tells the view whether the listing is loading, loaded or failed.
// An empty listing with StatusOK means "no deals"; with StatusError it means
// the load failed.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
)

// State is a snapshot of the listing as the view sees it.
type State struct {
	Page      int           `json:"page"`
	HasNext   bool          `json:"hasNext"`
	Filters   Filters       `json:"-"`
	Results   []Deal        `json:"deals"`
	Status    Status        `json:"status"`
	Catalog   FilterCatalog `json:"catalog"`
	UseFilter bool          `json:"filtered"`
}

// --- API payloads ---

// listResponse is returned by GET /deals and GET /dealsFiltered. Older API
// builds spell the flag has_next.
type listResponse struct {
	Deals        []Deal `json:"deals"`
	HasNext      bool   `json:"hasNext"`
	HasNextSnake bool   `json:"has_next"`
}

// detailResponse is returned by GET /dealDetail.
type detailResponse struct {
	Deal *DealDetail `json:"deal"`
}
