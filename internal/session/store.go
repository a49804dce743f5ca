package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Reader is the read side of the Store. Controllers that only need to know
// whether (and as whom) the user is signed in depend on this.
type Reader interface {
	Get() Session
}

// Store owns the process-wide Session. The Auth Controller is its only
// writer; everything else reads through Get.
type Store struct {
	mu      sync.RWMutex
	current Session
	backend Backend
}

// NewStore loads the Session from backend. Keys that are missing or cannot
// be decoded fall back to their defaults; only a backend read failure on
// every key is fatal.
func NewStore(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{current: Defaults(), backend: backend}

	var failures int
	for _, key := range Keys {
		raw, ok, err := backend.Load(ctx, key)
		if err != nil {
			failures++
			slog.Warn("loading session key failed, using default",
				slog.String("key", key),
				slog.Any("error", err),
			)
			continue
		}
		if !ok {
			continue
		}
		if err := s.current.decode(key, raw); err != nil {
			slog.Warn("discarding undecodable session key",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
	if failures == len(Keys) {
		return nil, fmt.Errorf("session backend unreadable")
	}

	if s.current.Signed && !s.current.IsAuthenticated() {
		slog.Warn("persisted session is a partial sign-in, treating as anonymous")
	}
	return s, nil
}

// Get returns a copy of the current Session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Set merges p into the Session and persists the changed keys. The
// in-memory record is replaced as a whole, so readers see either the old or
// the new Session. A persistence failure is returned but does not roll back
// the in-memory record.
func (s *Store) Set(ctx context.Context, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	var changed []string
	if p.Signed != nil {
		next.Signed = *p.Signed
		changed = append(changed, KeySigned)
	}
	if p.User != nil {
		u := *p.User
		next.User = &u
		changed = append(changed, KeyUser)
	}
	if p.AccessToken != nil {
		next.AccessToken = *p.AccessToken
		changed = append(changed, KeyAccessToken)
	}
	if p.RefreshToken != nil {
		next.RefreshToken = *p.RefreshToken
		changed = append(changed, KeyRefreshToken)
	}
	if p.IsFirstRegistration != nil {
		next.IsFirstRegistration = *p.IsFirstRegistration
		changed = append(changed, KeyIsFirstRegistration)
	}
	s.current = next

	var errs []error
	for _, key := range changed {
		raw, err := next.encode(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.backend.Save(ctx, key, raw); err != nil {
			errs = append(errs, fmt.Errorf("saving session key %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Reset restores the default Session and removes every persisted key.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Defaults()

	var errs []error
	for _, key := range Keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("deleting session key %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// encode returns the JSON value persisted under key.
func (s Session) encode(key string) ([]byte, error) {
	var v any
	switch key {
	case KeyUser:
		v = s.User
	case KeySigned:
		v = s.Signed
	case KeyAccessToken:
		v = s.AccessToken
	case KeyRefreshToken:
		v = s.RefreshToken
	case KeyIsFirstRegistration:
		v = s.IsFirstRegistration
	default:
		return nil, fmt.Errorf("unknown session key %q", key)
	}
	return json.Marshal(v)
}

// decode applies the JSON value persisted under key. On error the field is
// left at its current (default) value.
func (s *Session) decode(key string, raw []byte) error {
	switch key {
	case KeyUser:
		var u *User
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}
		s.User = u
	case KeySigned:
		return json.Unmarshal(raw, &s.Signed)
	case KeyAccessToken:
		return json.Unmarshal(raw, &s.AccessToken)
	case KeyRefreshToken:
		return json.Unmarshal(raw, &s.RefreshToken)
	case KeyIsFirstRegistration:
		return json.Unmarshal(raw, &s.IsFirstRegistration)
	default:
		return fmt.Errorf("unknown session key %q", key)
	}
	return nil
}
