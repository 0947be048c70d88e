// Package ratelimit tracks catalog service rate limiting and gates requests.
// When the service answers 429 Too Many Requests it sends a Retry-After
// header; the tracker records the resulting cooldown (optionally in Redis so
// every process sharing the credentials observes it) and refuses dispatch
// until the cooldown has elapsed.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyBlockedUntil = "catalog:rate_limit:blocked_until"
	RedisKeyLastUpdate   = "catalog:rate_limit:last_update"
)

const (
	// DefaultRetryAfter is used for a 429 without a usable Retry-After header.
	DefaultRetryAfter = 1 * time.Second

	// MaxRetryAfter caps the cooldown taken from a Retry-After header.
	MaxRetryAfter = 10 * time.Minute
)

// State represents the current rate limit cooldown.
type State struct {
	// BlockedUntil is the instant until which no request should be sent.
	// Zero when no cooldown is active.
	BlockedUntil time.Time `json:"blocked_until"`

	// RetryAfter is the cooldown announced by the last 429 response.
	RetryAfter time.Duration `json:"retry_after"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked returns true while the cooldown is active at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the remaining cooldown.
// Returns 0 if the cooldown has already passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter interprets a Retry-After header value, given either as
// delay-seconds or as an HTTP date. Missing or unusable values yield
// DefaultRetryAfter; the result is capped at MaxRetryAfter.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultRetryAfter
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return DefaultRetryAfter
	}

	switch {
	case d <= 0:
		return DefaultRetryAfter
	case d > MaxRetryAfter:
		return MaxRetryAfter
	default:
		return d
	}
}
