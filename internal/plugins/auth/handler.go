package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/middleware"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// User-facing messages. Upstream detail never reaches the page.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgConnection         = "Connection error"
	msgUsernameTaken      = "Username already taken"
	msgPasswordMismatch   = "Passwords do not match"
	msgDataNotValid       = "Data not valid"
)

// SignedChangeListener is told when the Session flips between anonymous and
// authenticated so views depending on it can reload.
type SignedChangeListener interface {
	OnSignedChanged(ctx context.Context)
}

// Handler handles HTTP requests for authentication (login, register, logout).
// Handlers are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service  AuthService
	session  session.Reader
	listener SignedChangeListener
}

// NewHandler creates a new auth handler. listener may be nil.
func NewHandler(service AuthService, reader session.Reader, listener SignedChangeListener) *Handler {
	return &Handler{service: service, session: reader, listener: listener}
}

// LoginForm renders the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	if h.session.Get().IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, LoginPage("", ""))
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		return middleware.Render(c, http.StatusOK, LoginPage(req.Username, msgInvalidCredentials))
	}

	if err := h.service.SignIn(c.Request().Context(), req.Username, req.Password); err != nil {
		return middleware.Render(c, http.StatusOK, LoginPage(req.Username, signInMessage(err)))
	}

	h.signedChanged(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

// RegisterForm renders the registration page (GET /register).
func (h *Handler) RegisterForm(c echo.Context) error {
	current := h.session.Get()
	if current.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, RegisterPage(nil, current.IsFirstRegistration, ""))
}

// Register processes the registration form submission (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	isFirst := h.session.Get().IsFirstRegistration

	if msg := validateRegisterRequest(&req); msg != "" {
		return middleware.Render(c, http.StatusOK, RegisterPage(&req, isFirst, msg))
	}

	err := h.service.Register(c.Request().Context(), RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordCheck,
	})
	if err != nil {
		return middleware.Render(c, http.StatusOK, RegisterPage(&req, isFirst, registerMessage(err)))
	}

	h.signedChanged(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout signs out locally and notifies the API (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	// SignOut only fails on a programming error; the local reset happens
	// regardless.
	_ = h.service.SignOut(c.Request().Context())

	h.signedChanged(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

// SessionJSON returns the public part of the Session (GET /api/v1/session).
// Tokens are never serialised.
func (h *Handler) SessionJSON(c echo.Context) error {
	s := h.session.Get()
	return c.JSON(http.StatusOK, map[string]any{
		"signed":              s.IsAuthenticated(),
		"user":                s.Username(),
		"isFirstRegistration": s.IsFirstRegistration,
	})
}

func (h *Handler) signedChanged(c echo.Context) {
	if h.listener != nil {
		h.listener.OnSignedChanged(c.Request().Context())
	}
}

// signInMessage maps a SignIn error to the message shown on the form.
func signInMessage(err error) string {
	if apperror.IsType(err, apperror.TypeInvalidCredentials) {
		return msgInvalidCredentials
	}
	return msgConnection
}

// registerMessage maps a Register error to the message shown on the form,
// using the API's field-keyed errors when present.
func registerMessage(err error) string {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Type != apperror.TypeValidation {
		return msgConnection
	}
	switch {
	case appErr.HasField(FieldUsername):
		return msgUsernameTaken
	case appErr.HasField(FieldPasswordCheck):
		return msgPasswordMismatch
	default:
		return msgDataNotValid
	}
}

// validateRegisterRequest catches empty fields before calling the API.
// Returns an empty string when the request looks sendable.
func validateRegisterRequest(req *RegisterRequest) string {
	if req.Username == "" || req.Password == "" || req.PasswordCheck == "" {
		return msgDataNotValid
	}
	return ""
}
