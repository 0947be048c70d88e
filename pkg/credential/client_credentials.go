package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultExpiryMargin renews tokens slightly before the server-side expiry.
const DefaultExpiryMargin = 30 * time.Second

// refreshTimeout bounds a shared token request independently of the caller
// that started it.
const refreshTimeout = 30 * time.Second

// ClientCredentialsConfig configures a ClientCredentials provider.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// HTTPClient is used for token requests (default: oauth2's default client).
	HTTPClient *http.Client

	// Store shares tokens between processes (optional).
	Store Store

	// ExpiryMargin is subtracted from the reported expiry.
	ExpiryMargin time.Duration
}

// ClientCredentials acquires tokens with the OAuth2 client-credentials grant.
type ClientCredentials struct {
	config     clientcredentials.Config
	httpClient *http.Client
	store      Store
	margin     time.Duration
	logger     zerolog.Logger

	mu    sync.RWMutex
	state State
	group singleflight.Group
	now   func() time.Time
}

// NewClientCredentials creates a client-credentials provider.
// No token is fetched until the first Refresh.
func NewClientCredentials(cfg ClientCredentialsConfig, logger zerolog.Logger) (*ClientCredentials, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if cfg.ExpiryMargin < 0 {
		return nil, fmt.Errorf("expiry margin must be >= 0 (got %s)", cfg.ExpiryMargin)
	}

	return &ClientCredentials{
		config: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		httpClient: cfg.HTTPClient,
		store:      cfg.Store,
		margin:     cfg.ExpiryMargin,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Current returns the cached state.
func (p *ClientCredentials) Current() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Refresh returns a valid state, fetching a new token when needed.
// Concurrent calls share a single token request.
func (p *ClientCredentials) Refresh(ctx context.Context) (State, error) {
	ch := p.group.DoChan("token", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return State{}, res.Err
		}
		if res.Shared {
			p.logger.Debug().Msg("Joined in-flight token refresh")
		}
		return res.Val.(State), nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (p *ClientCredentials) refresh(ctx context.Context) (State, error) {
	now := p.now()

	// A caller that queued behind a finished refresh gets the fresh token.
	if current := p.Current(); !current.Expired(now) {
		return current, nil
	}

	if p.store != nil {
		stored, err := p.store.Load(ctx, p.config.ClientID)
		switch {
		case err == nil && !stored.Expired(now):
			p.set(stored)
			p.logger.Debug().Time("expires_at", stored.ExpiresAt).Msg("Loaded token from store")
			return stored, nil
		case err != nil && !errors.Is(err, ErrNotStored):
			p.logger.Warn().Err(err).Msg("Credential store unavailable - requesting new token")
		}
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := p.config.Token(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Token request failed")
		return State{}, fmt.Errorf("fetch token: %w", err)
	}

	state := State{Token: tok.AccessToken}
	if !tok.Expiry.IsZero() {
		state.ExpiresAt = tok.Expiry.Add(-p.margin)
	}
	p.set(state)

	p.logger.Info().Time("expires_at", state.ExpiresAt).Msg("Acquired new access token")

	if p.store != nil {
		if err := p.store.Save(ctx, p.config.ClientID, state); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to store token")
		}
	}

	return state, nil
}

func (p *ClientCredentials) set(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}
