package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_hits_total",
		Help: "Total number of 429 responses received from the catalog service",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests refused during a rate limit cooldown",
	})

	rateLimitRetryAfter = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_retry_after_seconds",
		Help: "Retry-After announced by the last 429 response",
	})
)

// Tracker monitors 429 responses and gates requests during the cooldown.
// With a nil Redis client the state is kept in process only.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.RWMutex
	local State
	now   func() time.Time
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// GetState returns the current cooldown state. With Redis configured the
// shared state wins over the local copy when it blocks for longer.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	t.mu.RLock()
	state := t.local
	t.mu.RUnlock()

	if t.redis == nil {
		return &state, nil
	}

	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}
	if errors.Is(err, redis.Nil) {
		return &state, nil
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	shared := time.UnixMilli(blockedUntil)
	if shared.After(state.BlockedUntil) {
		state.BlockedUntil = shared
		if lastUpdate > 0 {
			state.LastUpdate = time.UnixMilli(lastUpdate)
		}
	}

	return &state, nil
}

// UpdateFromResponse records a cooldown when status is 429. Other statuses
// are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	if status != http.StatusTooManyRequests {
		return nil
	}

	now := t.now()
	retryAfter := ParseRetryAfter(headers.Get("Retry-After"), now)
	state := State{
		BlockedUntil: now.Add(retryAfter),
		RetryAfter:   retryAfter,
		LastUpdate:   now,
	}

	t.mu.Lock()
	if state.BlockedUntil.After(t.local.BlockedUntil) {
		t.local = state
	}
	t.mu.Unlock()

	rateLimitHitsTotal.Inc()
	rateLimitRetryAfter.Set(retryAfter.Seconds())

	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("blocked_until", state.BlockedUntil).
		Msg("Catalog rate limit hit - cooling down")

	if t.redis == nil {
		return nil
	}

	// Keys expire together with the cooldown.
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.UnixMilli(), retryAfter)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixMilli(), retryAfter)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be dispatched now.
// Redis failures fall back to the local state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable - using local state")
		t.mu.RLock()
		local := t.local
		t.mu.RUnlock()
		state = &local
	}

	if state.IsBlocked(t.now()) {
		t.logger.Warn().
			Time("blocked_until", state.BlockedUntil).
			Msg("Catalog rate limit cooldown - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	return true, nil
}
