// Package ratelimit tracks Ninox API throttling (429 Too Many Requests) and
// holds back further requests until the announced Retry-After has passed.
// State lives in Redis so every connector instance sharing a token backs off
// together.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage. The scope (a token fingerprint)
// is appended so separate API tokens are throttled independently.
const (
	RedisKeyBlockedUntil = "ninox:rate_limit:blocked_until"
	RedisKeyLastUpdate   = "ninox:rate_limit:last_update"
	RedisKeyHits         = "ninox:rate_limit:hits"
)

// Defaults for throttling decisions.
const (
	// DefaultRetryAfter applies when a 429 carries no usable Retry-After.
	DefaultRetryAfter = 1 * time.Second

	// DefaultMaxWait is the longest a request is held back before the
	// tracker gives up and fails it with ErrBlocked.
	DefaultMaxWait = 30 * time.Second
)

// RateLimitState represents the current throttling state for one scope.
type RateLimitState struct {
	// BlockedUntil is when requests may resume. Zero means not blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when a 429 was last observed.
	LastUpdate time.Time `json:"last_update"`

	// Hits counts 429 responses seen in the current block window.
	Hits int `json:"hits"`
}

// IsBlocked reports whether requests must wait at the given instant.
func (s *RateLimitState) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the duration until requests may resume.
// Returns 0 if the block has already passed.
func (s *RateLimitState) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
