// data.go provides typed context helpers for passing layout data from
// handlers/middleware to Templ components. This avoids importing plugin
// types in the layouts package -- only simple types are stored.
//
// Data flow: Middleware -> Echo Context -> LayoutInjector -> Go Context -> Templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated     ctxKey = "layout_is_authenticated"
	keyUserName            ctxKey = "layout_user_name"
	keyIsFirstRegistration ctxKey = "layout_is_first_registration"
	keyActivePath          ctxKey = "layout_active_path"
	keyRequestID           ctxKey = "layout_request_id"
	keyCSRFToken           ctxKey = "layout_csrf_token"
)

// CSRFFieldName is the hidden form field every POST form carries.
const CSRFFieldName = "csrf_token"

// --- Setters (called by the layout injector in app/routes.go) ---

// SetIsAuthenticated marks whether the client Session is signed in.
func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

// SetUserName stores the signed-in username in context.
func SetUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyUserName, name)
}

// SetIsFirstRegistration stores the first-registration hint.
func SetIsFirstRegistration(ctx context.Context, first bool) context.Context {
	return context.WithValue(ctx, keyIsFirstRegistration, first)
}

// SetActivePath stores the current request path for nav highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// SetRequestID stores the request ID shown on error pages.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// SetCSRFToken stores the token forms must post back.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// --- Getters (called from components) ---

// IsAuthenticated returns true if the client Session is signed in.
func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsAuthenticated).(bool)
	return v
}

// GetUserName returns the signed-in username, or "".
func GetUserName(ctx context.Context) string {
	v, _ := ctx.Value(keyUserName).(string)
	return v
}

// IsFirstRegistration returns the first-registration hint.
func IsFirstRegistration(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsFirstRegistration).(bool)
	return v
}

// GetActivePath returns the current request path.
func GetActivePath(ctx context.Context) string {
	v, _ := ctx.Value(keyActivePath).(string)
	return v
}

// GetRequestID returns the request ID, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// GetCSRFToken returns the CSRF token, or "".
func GetCSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(keyCSRFToken).(string)
	return v
}
