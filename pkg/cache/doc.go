// Package cache provides a Redis-backed response cache for Ninox metadata
// lookups: team, database and table listings and table schemas.
//
// Record data is never cached. Records change between polls and the
// pagination logic relies on seeing the server's current pages.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint: "teams/t1/databases/db1/tables",
//		Scope:    cache.ScopeForToken(token),
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		entry, _ = cache.ResponseToEntry(resp, cache.DefaultTTL)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Expiry
//
// Entries live until the response's Cache-Control max-age or Expires header,
// falling back to the TTL passed to ResponseToEntry. Redis removes expired
// keys on its own; Get also treats an expired entry as a miss.
//
// # Metrics
//
//   - ninox_cache_hits_total - Cache hits
//   - ninox_cache_misses_total - Cache misses
//   - ninox_cache_size_bytes - Bytes written to the cache
//   - ninox_cache_errors_total{operation} - Cache operation errors
package cache
