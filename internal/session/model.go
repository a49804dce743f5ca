// Package session holds the storefront's client-side Session: who is signed
// in, their bearer tokens, and the first-registration hint. The Session is a
// single process-wide record owned by a Store, persisted field-by-field
// through a pluggable Backend so it survives restarts.
package session

// Persisted keys. Each Session field lives under its own key and is loaded
// and defaulted independently.
const (
	KeyUser                = "user"
	KeySigned              = "signed"
	KeyAccessToken         = "bearer"
	KeyRefreshToken        = "rtk"
	KeyIsFirstRegistration = "ifr"
)

// Keys lists every persisted key in load order.
var Keys = []string{KeyUser, KeySigned, KeyAccessToken, KeyRefreshToken, KeyIsFirstRegistration}

// User is the identity returned by the API on sign-in and registration.
type User struct {
	Username string `json:"username"`
}

// Session is the client-side record of authentication state.
type Session struct {
	Signed              bool   `json:"signed"`
	User                *User  `json:"user"`
	AccessToken         string `json:"-"`
	RefreshToken        string `json:"-"`
	IsFirstRegistration bool   `json:"isFirstRegistration"`
}

// Defaults returns the anonymous Session.
func Defaults() Session {
	return Session{IsFirstRegistration: true}
}

// IsAuthenticated reports whether the Session is fully signed in. A record
// with Signed set but no user or no access token is a partial sign-in and
// counts as anonymous.
func (s Session) IsAuthenticated() bool {
	return s.Signed && s.User != nil && s.AccessToken != ""
}

// Username returns the signed-in username, or "" when anonymous.
func (s Session) Username() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.Username
}

// BearerToken returns the access token when authenticated, otherwise "".
// Readers use this to decide the request shape.
func (s Session) BearerToken() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.AccessToken
}

// clone returns a copy that shares no pointers with s.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Signed              *bool
	User                *User
	AccessToken         *string
	RefreshToken        *string
	IsFirstRegistration *bool
}

// Bool returns a pointer to b, for building Patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for building Patches.
func String(s string) *string { return &s }
