package deals

import (
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Store names as the API reports them.
const (
	storeSteam  = "Steam"
	storeGOG    = "GOG"
	storeHumble = "Humble Store"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders p as US dollars, e.g. "$1,299.99".
func FormatPrice(p Price) string {
	return usdPrinter.Sprintf("$%.2f", float64(p))
}

// StoreColor returns the CSS class used to tag a store on cards and the
// detail page.
func StoreColor(storeName string) string {
	switch storeName {
	case storeSteam:
		return "bg-teal"
	case storeHumble:
		return "bg-red"
	default:
		return "bg-yellow"
	}
}

// StoreURL derives the store page of a deal. Steam links by app id; GOG and
// Humble link by a slug of the title. Returns "" when no link can be built.
func StoreURL(d DealDetail) string {
	switch d.StoreName {
	case storeSteam:
		if d.SteamAppID == "" {
			return ""
		}
		return "https://store.steampowered.com/app/" + string(d.SteamAppID)
	case storeGOG:
		if slug := Slug(d.Title, '_'); slug != "" {
			return "https://www.gog.com/en/game/" + slug
		}
	case storeHumble:
		if slug := Slug(d.Title, '-'); slug != "" {
			return "https://www.humblebundle.com/store/" + slug
		}
	}
	return ""
}

// Slug lowercases title, transliterates it to ASCII and replaces every run
// of non-alphanumeric characters with a single sep. Leading and trailing
// separators are dropped.
func Slug(title string, sep byte) string {
	ascii := strings.ToLower(unidecode.Unidecode(title))

	var b strings.Builder
	b.Grow(len(ascii))
	pending := false
	for i := 0; i < len(ascii); i++ {
		ch := ascii[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte(sep)
			}
			pending = false
			b.WriteByte(ch)
			continue
		}
		pending = true
	}
	return b.String()
}

// FormatDate renders an API timestamp as M/D/YYYY. Unparseable input is
// returned unchanged.
func FormatDate(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return value
}
