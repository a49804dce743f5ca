// Package sanitize cleans text that arrives from the remote API before it
// is shown. Deal titles and store names are scraped from third-party stores,
// so any markup in them is stripped with bluemonday rather than trusted.
package sanitize

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips every HTML element from input and returns plain text with
// whitespace collapsed. The result is unescaped: components escape on
// output, so entities here would be double-escaped.
func Text(input string) string {
	if input == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(input))
	return strings.Join(strings.Fields(stripped), " ")
}

// URL returns u when it is an absolute http(s) URL, otherwise "". Used for
// thumbnails and store links so a javascript: URL never reaches an href or
// src attribute.
func URL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return parsed.String()
	default:
		return ""
	}
}
