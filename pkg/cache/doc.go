// Package cache provides a Redis-backed response cache for provider
// endpoints whose data changes rarely, such as the area tree.
//
// Entries carry their own expiry; the Redis TTL is set to match so stale
// data disappears on its own. A cache is always optional: the client treats
// any cache error as a miss and goes to the provider.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Provider: "hh", Endpoint: "/areas"}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the provider, then
//		_ = manager.Set(ctx, key, cache.NewEntry(body, resp.Header, 24*time.Hour))
//	}
//
// # Metrics
//
//   - jobstats_cache_hits_total{provider}
//   - jobstats_cache_misses_total{provider}
//   - jobstats_cache_errors_total{operation}
package cache
