package mailscore

import "time"

// DefaultMXTimeout bounds every MX lookup.
const DefaultMXTimeout = 5 * time.Second

// CacheOptions configures the MX answer cache.
type CacheOptions struct {
	// TTL is how long an answer is reused. Default: 5m
	TTL time.Duration
	// Remote is an optional tier shared between processes, e.g. NewRedisCache.
	Remote RemoteCache
	// PruneEvery starts a janitor removing expired entries. Default: 0 (disabled)
	PruneEvery time.Duration
}

func defaultCacheOptions() CacheOptions {
	return CacheOptions{
		TTL: 5 * time.Minute,
	}
}

// ConcurrencyOptions configures concurrent processing for ValidateMany.
type ConcurrencyOptions struct {
	// Workers is the number of concurrent goroutines.
	// Default: one per email, so a slow lookup never queues the others.
	Workers int
}
