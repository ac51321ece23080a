// Package client provides the Ninox HTTP client: bearer authentication,
// error classification, metadata caching and rate limit gating.
//
// The client never retries. A failed request is returned to the caller as
// is; retry policy belongs to the workflow host.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/ninox-connector/pkg/cache"
	"github.com/Sternrassler/ninox-connector/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Ninox cloud API.
const DefaultBaseURL = "https://api.ninox.com/v1"

// maxErrorBody bounds how much of a failed response is kept in APIError.
const maxErrorBody = 4096

// Prometheus metrics for Ninox client operations.
var (
	ninoxRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ninox_requests_total",
		Help: "Total Ninox API requests by operation and status",
	}, []string{"operation", "status"})

	ninoxRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ninox_request_duration_seconds",
		Help:    "Ninox API request duration in seconds by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	ninoxErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ninox_errors_total",
		Help: "Total Ninox API errors by class",
	}, []string{"class"})
)

// Client is the Ninox API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	cacheScope  string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API. Empty means DefaultBaseURL; private cloud and
	// on-premise installations set their own (see ResolveBaseURL).
	BaseURL string

	// Token is the personal access token sent as bearer credentials.
	Token string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// HTTPClient overrides the transport (tests, proxies). Timeout is
	// ignored when set.
	HTTPClient *http.Client

	// Redis enables the metadata cache and shared rate limit state.
	// Optional.
	Redis *redis.Client

	// SchemaTTL is the fallback lifetime of cached metadata responses.
	SchemaTTL time.Duration

	// MaxRateLimitWait is the longest a request waits for a 429 block to
	// clear before failing.
	MaxRateLimitWait time.Duration
}

// DefaultConfig returns a configuration for the public cloud API.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Token:            token,
		UserAgent:        "ninox-connector/1.0",
		Timeout:          30 * time.Second,
		SchemaTTL:        cache.DefaultTTL,
		MaxRateLimitWait: ratelimit.DefaultMaxWait,
	}
}

// ResolveBaseURL returns DefaultBaseURL for an empty value, otherwise the
// custom URL without trailing slashes.
func ResolveBaseURL(custom string) string {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(custom, "/")
}

// New creates a new Ninox client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	baseURL := ResolveBaseURL(cfg.BaseURL)
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 && cfg.HTTPClient == nil {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	logger := log.With().Str("component", "ninox-client").Logger()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cacheScope: cache.ScopeForToken(baseURL, cfg.Token),
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, c.cacheScope, cfg.MaxRateLimitWait, logger)
	}

	return c, nil
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call.
type request struct {
	op          string
	method      string
	endpoint    string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

// jsonBody encodes v as a request body.
func jsonBody(v any) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

// do performs one HTTP round trip. Non-2xx responses are returned as
// *APIError with the body consumed and closed.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		ninoxRequestDuration.WithLabelValues(r.op).Observe(time.Since(startTime).Seconds())
	}()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			ninoxRequestsTotal.WithLabelValues(r.op, "rate_limited").Inc()
			return nil, fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
		}
	}

	target := c.baseURL + "/" + strings.TrimLeft(r.endpoint, "/")
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if r.body != nil {
		contentType := r.contentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		req.Header.Set("Content-Type", contentType)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("operation", r.op).
		Str("method", r.method).
		Str("endpoint", r.endpoint).
		Msg("Executing Ninox request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ninoxErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		ninoxRequestsTotal.WithLabelValues(r.op, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", r.endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
	}

	ninoxRequestsTotal.WithLabelValues(r.op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(r, resp)
		ninoxErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
		c.logger.Warn().
			Str("endpoint", r.endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("Ninox request error")
		return nil, apiErr
	}

	return resp, nil
}

// newAPIError drains and closes the response body.
func newAPIError(r request, resp *http.Response) *APIError {
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		Method:     r.method,
		Endpoint:   r.endpoint,
		StatusCode: resp.StatusCode,
		ErrorClass: classify(resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(raw),
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}

	return apiErr
}

// doJSON performs the request and decodes a JSON response into out. A nil
// out discards the body.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.endpoint, err)
	}
	return nil
}

// getCachedJSON serves metadata GETs from the cache when Redis is
// configured. Cache failures fall back to a direct request.
func (c *Client) getCachedJSON(ctx context.Context, op, endpoint string, out any) error {
	r := request{op: op, method: http.MethodGet, endpoint: endpoint}
	if c.cache == nil {
		return c.doJSON(ctx, r, out)
	}

	key := cache.CacheKey{Endpoint: endpoint, Scope: c.cacheScope}
	entry, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(entry.Data, out); jsonErr == nil {
			c.logger.Debug().Str("endpoint", endpoint).Bool("cache_hit", true).Msg("Serving metadata from cache")
			return nil
		}
	case err != cache.ErrCacheMiss:
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	entry, err = cache.ResponseToEntry(resp, c.config.SchemaTTL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
	}
	return nil
}

// PurgeCache drops every cached metadata response of this client's
// credentials. It is a no-op without Redis.
func (c *Client) PurgeCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	n, err := c.cache.Purge(ctx, c.cacheScope)
	if err != nil {
		return err
	}
	c.logger.Info().Int("entries", n).Msg("Purged metadata cache")
	return nil
}
