package apiclient

import (
	"context"
	"net/url"
	"strings"
)

// Query is an ordered set of query parameters. Unlike url.Values it keeps
// insertion order on the wire, which the listing endpoints rely on.
type Query struct {
	params []param
}

type param struct {
	key, value string
}

// Add appends a parameter.
func (q *Query) Add(key, value string) {
	q.params = append(q.params, param{key: key, value: value})
}

// Len returns the number of parameters.
func (q Query) Len() int {
	return len(q.params)
}

// Get returns the first value for key.
func (q Query) Get(key string) string {
	for _, p := range q.params {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Encode renders the parameters as "k1=v1&k2=v2" in insertion order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// componentUnescaper undoes the QueryEscape forms that encodeURIComponent
// leaves alone: space is %20 rather than +, and !'()* stay literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent escapes s the way a browser's encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

type requestIDKey struct{}

// WithRequestID stores a request ID that outgoing API calls will forward.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
