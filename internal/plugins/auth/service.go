package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/keyxmakerx/dealfinder/internal/apiclient"
	"github.com/keyxmakerx/dealfinder/internal/apperror"
	"github.com/keyxmakerx/dealfinder/internal/session"
)

// API is the subset of the HTTP client adapter the auth service uses.
type API interface {
	Get(ctx context.Context, path string, q apiclient.Query, token string, out any) error
	Post(ctx context.Context, path, token string, body, out any) error
}

// SessionStore is the read/write side of the client Session. The auth
// service is its only writer.
type SessionStore interface {
	Get() session.Session
	Set(ctx context.Context, p session.Patch) error
	Reset(ctx context.Context) error
}

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the API client directly.
type AuthService interface {
	// CheckAdminBootstrap asks the API whether an admin already exists and
	// clears the first-registration flag if so. Errors are logged, not
	// returned.
	CheckAdminBootstrap(ctx context.Context)
	SignIn(ctx context.Context, username, password string) error
	SignOut(ctx context.Context) error
	Register(ctx context.Context, input RegisterInput) error
	// RenewToken is reserved for the refresh-token exchange. It does
	// nothing yet and never alters the Session.
	RenewToken(ctx context.Context) error
}

// authService implements AuthService over the remote API and the Session
// store.
type authService struct {
	api   API
	store SessionStore
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(api API, store SessionStore) AuthService {
	return &authService{api: api, store: store}
}

func (s *authService) CheckAdminBootstrap(ctx context.Context) {
	var resp adminExistResponse
	if err := s.api.Get(ctx, "/admin-exist", apiclient.Query{}, "", &resp); err != nil {
		slog.Warn("admin bootstrap check failed", slog.Any("error", err))
		return
	}
	if !resp.AdminExist || !s.store.Get().IsFirstRegistration {
		return
	}
	if err := s.store.Set(ctx, session.Patch{IsFirstRegistration: session.Bool(false)}); err != nil {
		slog.Warn("persisting first-registration flag failed", slog.Any("error", err))
	}
}

// SignIn exchanges credentials for tokens. The first-registration hint is
// re-opened on every successful sign-in.
func (s *authService) SignIn(ctx context.Context, username, password string) error {
	var resp tokenResponse
	err := s.api.Post(ctx, "/signin", "", credentialsPayload{Username: username, Password: password}, &resp)
	if err != nil {
		if respErr, ok := apiclient.AsResponseError(err); ok && isClientError(respErr.StatusCode) {
			return apperror.NewInvalidCredentials(respErr.StatusCode, err)
		}
		return asConnectionError(err)
	}
	if err := validateTokens(resp); err != nil {
		return apperror.NewConnection(fmt.Errorf("sign-in: %w", err))
	}

	s.applyTokens(ctx, resp, session.Bool(true))
	slog.Info("signed in", slog.String("username", resp.User.Username))
	return nil
}

// SignOut notifies the API (best effort) and resets the Session. The local
// reset always happens.
func (s *authService) SignOut(ctx context.Context) error {
	current := s.store.Get()
	if current.RefreshToken != "" || current.AccessToken != "" {
		err := s.api.Post(ctx, "/signout", current.AccessToken, signOutPayload{Refresh: current.RefreshToken}, nil)
		if err != nil {
			slog.Warn("sign-out notification failed", slog.Any("error", err))
		}
	}

	if err := s.store.Reset(ctx); err != nil {
		slog.Warn("clearing persisted session failed", slog.Any("error", err))
	}
	slog.Info("signed out", slog.String("username", current.Username()))
	return nil
}

// Register creates an account and signs it in. The first-registration flag
// is cleared only when it was set before the call.
func (s *authService) Register(ctx context.Context, input RegisterInput) error {
	wasFirst := s.store.Get().IsFirstRegistration

	var resp tokenResponse
	err := s.api.Post(ctx, "/signon", "", registrationPayload{
		Username:      input.Username,
		Password:      input.Password,
		PasswordCheck: input.PasswordConfirm,
	}, &resp)
	if err != nil {
		if respErr, ok := apiclient.AsResponseError(err); ok && isClientError(respErr.StatusCode) {
			valErr := apperror.NewValidation(respErr.StatusCode, "Data not valid.", respErr.Fields)
			valErr.Internal = err
			return valErr
		}
		return asConnectionError(err)
	}
	if err := validateTokens(resp); err != nil {
		return apperror.NewConnection(fmt.Errorf("registration: %w", err))
	}

	var ifr *bool
	if wasFirst {
		ifr = session.Bool(false)
	}
	s.applyTokens(ctx, resp, ifr)
	slog.Info("registered", slog.String("username", resp.User.Username), slog.Bool("first_account", wasFirst))
	return nil
}

func (s *authService) RenewToken(ctx context.Context) error {
	slog.DebugContext(ctx, "token renewal is not implemented; keeping current tokens")
	return nil
}

// applyTokens writes a successful sign-in or registration to the Session in
// one patch. ifr, when non-nil, sets the first-registration flag.
func (s *authService) applyTokens(ctx context.Context, resp tokenResponse, ifr *bool) {
	err := s.store.Set(ctx, session.Patch{
		Signed:              session.Bool(true),
		User:                resp.User,
		AccessToken:         session.String(resp.Access),
		RefreshToken:        session.String(resp.Refresh),
		IsFirstRegistration: ifr,
	})
	if err != nil {
		// The in-memory Session is already updated; only persistence failed.
		slog.Warn("persisting session failed", slog.Any("error", err))
	}
}

// validateTokens rejects a 2xx body that would leave a partial sign-in.
func validateTokens(resp tokenResponse) error {
	if resp.User == nil || resp.User.Username == "" {
		return errors.New("response has no user")
	}
	if resp.Access == "" {
		return errors.New("response has no access token")
	}
	return nil
}

func isClientError(status int) bool {
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// asConnectionError keeps connection AppErrors from the client and wraps
// anything else.
func asConnectionError(err error) error {
	if apperror.IsType(err, apperror.TypeConnection) {
		return err
	}
	return apperror.NewConnection(err)
}
