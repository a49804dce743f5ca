package deals

import (
	"encoding/json"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   Price
		want string
	}{
		{12.99, "$12.99"},
		{0, "$0.00"},
		{5, "$5.00"},
		{1299.5, "$1,299.50"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStoreColor(t *testing.T) {
	tests := map[string]string{
		"Steam":        "bg-teal",
		"Humble Store": "bg-red",
		"GOG":          "bg-yellow",
		"":             "bg-yellow",
	}
	for store, want := range tests {
		if got := StoreColor(store); got != want {
			t.Errorf("StoreColor(%q) = %q, want %q", store, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		sep   byte
		want  string
	}{
		{"The Witcher 3: Wild Hunt", '_', "the_witcher_3_wild_hunt"},
		{"The Witcher 3: Wild Hunt", '-', "the-witcher-3-wild-hunt"},
		{"  Pokémon -- Édition ", '-', "pokemon-edition"},
		{"!!!", '-', ""},
		{"", '_', ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.title, tt.sep); got != tt.want {
			t.Errorf("Slug(%q, %q) = %q, want %q", tt.title, tt.sep, got, tt.want)
		}
	}
}

func TestStoreURL(t *testing.T) {
	tests := []struct {
		name string
		d    DealDetail
		want string
	}{
		{
			name: "steam by app id",
			d:    DealDetail{Deal: Deal{StoreName: "Steam", Title: "Hades"}, SteamAppID: "1145360"},
			want: "https://store.steampowered.com/app/1145360",
		},
		{
			name: "steam without app id",
			d:    DealDetail{Deal: Deal{StoreName: "Steam", Title: "Hades"}},
			want: "",
		},
		{
			name: "gog slug",
			d:    DealDetail{Deal: Deal{StoreName: "GOG", Title: "Disco Elysium - The Final Cut"}},
			want: "https://www.gog.com/en/game/disco_elysium_the_final_cut",
		},
		{
			name: "humble slug",
			d:    DealDetail{Deal: Deal{StoreName: "Humble Store", Title: "Hollow Knight"}},
			want: "https://www.humblebundle.com/store/hollow-knight",
		},
		{
			name: "unknown store",
			d:    DealDetail{Deal: Deal{StoreName: "Origin", Title: "Apex"}},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StoreURL(tt.d); got != tt.want {
				t.Errorf("StoreURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := map[string]string{
		"2020-09-17T00:00:00Z":        "9/17/2020",
		"2020-09-17T10:11:12.123456Z": "9/17/2020",
		"2021-01-05T08:00:00":         "1/5/2021",
		"2019-12-31":                  "12/31/2019",
		"":                            "",
		"soon":                        "soon",
	}
	for in, want := range tests {
		if got := FormatDate(in); got != want {
			t.Errorf("FormatDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPriceAndText_AcceptLooseJSON(t *testing.T) {
	var d DealDetail
	body := `{"deal_id":"x","sale_price":"4.99","normal_price":19.99,"deal_rating":8.5,"steam_app_id":null,"store":7}`
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.SalePrice != 4.99 || d.NormalPrice != 19.99 {
		t.Errorf("prices = %v / %v", d.SalePrice, d.NormalPrice)
	}
	if d.DealRating != "8.5" || d.SteamAppID != "" || d.StoreID != "7" {
		t.Errorf("text fields = %q %q %q", d.DealRating, d.SteamAppID, d.StoreID)
	}

	var bad Deal
	if err := json.Unmarshal([]byte(`{"sale_price":"free"}`), &bad); err == nil {
		t.Error("expected error for non-numeric price")
	}
}
