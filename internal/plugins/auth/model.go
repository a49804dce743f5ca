// Package auth signs the storefront's user in and out of the remote Deal
// Finder API and keeps the client Session in step with it. It also runs the
// one-time admin bootstrap check that decides whether the next registration
// is flagged as the first (admin) account.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Username      string `json:"username" form:"username"`
	Password      string `json:"password" form:"password"`
	PasswordCheck string `json:"passwordCheck" form:"passwordCheck"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the input for creating an account on the remote API.
type RegisterInput struct {
	Username        string
	Password        string
	PasswordConfirm string
}

// --- Remote API payloads ---

// credentialsPayload is the body of POST /signin.
type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registrationPayload is the body of POST /signon.
type registrationPayload struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	PasswordCheck string `json:"passwordCheck"`
}

// signOutPayload is the body of POST /signout.
type signOutPayload struct {
	Refresh string `json:"refresh"`
}

// tokenResponse is returned by POST /signin and POST /signon.
type tokenResponse struct {
	User    *session.User `json:"user"`
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
}

// adminExistResponse is returned by GET /admin-exist.
type adminExistResponse struct {
	AdminExist bool `json:"adminExist"`
}

// Registration form field names, as keyed in the API's "errors" map.
const (
	FieldUsername      = "username"
	FieldPassword      = "password"
	FieldPasswordCheck = "passwordCheck"
)
