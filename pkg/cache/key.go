package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "ninox:cache"

// CacheKey represents a unique identifier for a cached API response.
type CacheKey struct {
	// Endpoint is the API path relative to the base URL
	// (e.g., "teams/t1/databases/db1/tables")
	Endpoint string

	// QueryParams are the query parameters
	QueryParams url.Values

	// Scope separates entries of different API tokens and base URLs.
	// See ScopeForToken.
	Scope string
}

// ScopeForToken derives a short, non-reversible scope from the base URL and
// token so cached data is never served across credentials.
func ScopeForToken(baseURL, token string) string {
	sum := sha256.Sum256([]byte(baseURL + "\x00" + token))
	return hex.EncodeToString(sum[:8])
}

// ScopePattern matches every key of a scope in a Redis SCAN.
func ScopePattern(scope string) string {
	return KeyPrefix + ":*:scope=" + scope
}

// String generates a deterministic cache key string.
// Format: ninox:cache:endpoint:query1=val1:scope=abcd
//
// Example:
//
//	ninox:cache:teams/t1/databases/db1/tables:scope=0f3a9c1e2b4d5a6f
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	if k.Scope != "" {
		parts = append(parts, "scope="+k.Scope)
	}

	return strings.Join(parts, ":")
}
