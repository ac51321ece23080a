package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrBlocked is returned by Wait when the remaining block exceeds MaxWait.
var ErrBlocked = errors.New("request blocked: ninox rate limit active")

// Prometheus metrics for rate limit tracking.
var (
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ninox_rate_limit_hits_total",
		Help: "Total number of 429 responses received from the Ninox API",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ninox_rate_limit_wait_seconds",
		Help:    "Time requests were held back by an active rate limit block",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ninox_rate_limit_blocks_total",
		Help: "Total number of requests failed because the block outlasted the max wait",
	})
)

// Tracker monitors Ninox throttling responses and gates requests.
type Tracker struct {
	redis   *redis.Client
	logger  zerolog.Logger
	scope   string
	maxWait time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker for one token scope. A maxWait <= 0 uses
// DefaultMaxWait.
func NewTracker(redisClient *redis.Client, scope string, maxWait time.Duration, logger zerolog.Logger) *Tracker {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Tracker{
		redis:   redisClient,
		logger:  logger,
		scope:   scope,
		maxWait: maxWait,
		now:     time.Now,
	}
}

func (t *Tracker) key(base string) string {
	if t.scope == "" {
		return base
	}
	return base + ":" + t.scope
}

// GetState retrieves the current rate limit state from Redis.
// Returns an unblocked state if no data exists.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	blockedUntil, err := t.redis.Get(ctx, t.key(RedisKeyBlockedUntil)).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}
	if err == redis.Nil {
		return &RateLimitState{}, nil
	}

	lastUpdate, err := t.redis.Get(ctx, t.key(RedisKeyLastUpdate)).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	hits, err := t.redis.Get(ctx, t.key(RedisKeyHits)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get hits: %w", err)
	}

	return &RateLimitState{
		BlockedUntil: time.UnixMilli(blockedUntil),
		LastUpdate:   time.UnixMilli(lastUpdate),
		Hits:         hits,
	}, nil
}

// UpdateFromResponse records a block when the response is a 429. Other
// statuses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests {
		return nil
	}

	now := t.now()
	wait := parseRetryAfter(headers.Get("Retry-After"), now)
	blockedUntil := now.Add(wait)

	// Keys expire with the block so stale state never lingers.
	ttl := wait + time.Second
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, t.key(RedisKeyBlockedUntil), blockedUntil.UnixMilli(), ttl)
	pipe.Set(ctx, t.key(RedisKeyLastUpdate), now.UnixMilli(), ttl)
	hits := pipe.Incr(ctx, t.key(RedisKeyHits))
	pipe.Expire(ctx, t.key(RedisKeyHits), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	rateLimitHitsTotal.Inc()
	t.logger.Warn().
		Dur("retry_after", wait).
		Time("blocked_until", blockedUntil).
		Int64("hits", hits.Val()).
		Msg("Ninox rate limit hit")

	return nil
}

// Wait holds the caller back while a block is active. It returns ErrBlocked
// without waiting when the block outlasts the configured max wait.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}

	now := t.now()
	if !state.IsBlocked(now) {
		return nil
	}

	wait := state.TimeUntilReset(now)
	if wait > t.maxWait {
		rateLimitBlocksTotal.Inc()
		t.logger.Error().
			Dur("wait_duration", wait).
			Dur("max_wait", t.maxWait).
			Msg("Ninox rate limit block exceeds max wait - failing request")
		return fmt.Errorf("%w (resumes in %s)", ErrBlocked, wait.Round(time.Millisecond))
	}

	t.logger.Debug().Dur("wait_duration", wait).Msg("Waiting for Ninox rate limit to clear")
	rateLimitWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return DefaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return DefaultRetryAfter
}
