// Package credential holds the access-token state consumed by the catalog
// client and the providers able to (re)acquire it.
//
// The catalog client never mutates credentials. Before every dispatch it reads
// Provider.Current and, when the state is expired, asks the provider to
// Refresh. Providers in this package are safe for concurrent use.
package credential

import (
	"context"
	"errors"
	"time"
)

// ErrNotStored is returned by a Store when no usable state is persisted.
var ErrNotStored = errors.New("credential not stored")

// State is an access token and the instant it stops being valid.
// A zero ExpiresAt means the token does not expire.
type State struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is unusable at now.
func (s State) Expired(now time.Time) bool {
	if s.Token == "" {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Provider exposes the current credential state and refreshes it on demand.
type Provider interface {
	// Current returns the state as currently known, without I/O.
	Current() State

	// Refresh acquires a new state and returns it.
	Refresh(ctx context.Context) (State, error)
}

// Store persists credential state so several processes can share one token.
type Store interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, key string, state State) error
}

// Static is a Provider around a fixed, pre-acquired token.
type Static struct {
	state State
}

// NewStatic returns a provider that always serves token.
// expiresAt may be zero for a non-expiring token.
func NewStatic(token string, expiresAt time.Time) *Static {
	return &Static{state: State{Token: token, ExpiresAt: expiresAt}}
}

// Current returns the fixed state.
func (s *Static) Current() State {
	return s.state
}

// Refresh returns the fixed state; a static token cannot be renewed.
func (s *Static) Refresh(ctx context.Context) (State, error) {
	return s.state, nil
}
