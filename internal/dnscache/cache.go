// Package dnscache provides a thread-safe, TTL-based cache for DNS MX lookups
// with singleflight deduplication for concurrent requests to the same domain
// and an optional shared remote tier.
package dnscache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/mailscore/check"
)

// DefaultRemoteTimeout bounds each call to the remote tier so a stalled
// remote cannot consume the DNS lookup budget.
const DefaultRemoteTimeout = 250 * time.Millisecond

// Resolver is the DNS capability the cache wraps.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Remote is a cache tier shared between processes. Only positive answers
// are stored remotely; failures of the remote tier fall through to DNS.
type Remote interface {
	Get(ctx context.Context, domain string) ([]*net.MX, bool, error)
	Set(ctx context.Context, domain string, records []*net.MX, ttl time.Duration) error
	Close() error
}

// Cache is a thread-safe DNS MX lookup cache.
// Concurrent lookups for the same domain are deduplicated:
// only one actual DNS query is performed, and all waiters receive the result.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]*entry
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	resolver      Resolver
	remote        Remote
	remoteTimeout time.Duration
	log           *zap.Logger
}

type entry struct {
	records []*net.MX
	err     error
	expires time.Time
	done    chan struct{} // closed when lookup is complete
}

// Option configures a Cache.
type Option func(*Cache)

// WithRemote adds a shared tier consulted before DNS.
func WithRemote(r Remote) Option {
	return func(c *Cache) { c.remote = r }
}

// WithRemoteTimeout overrides DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.remoteTimeout = d
		}
	}
}

// WithLogger sets the logger used for remote tier failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a DNS cache with the given lookup timeout and cache TTL.
func New(lookupTimeout, cacheTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]*entry),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		resolver:      &net.Resolver{},
		remoteTimeout: DefaultRemoteTimeout,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithResolver creates a DNS cache with a custom resolver.
func NewWithResolver(lookupTimeout, cacheTTL time.Duration, r Resolver, opts ...Option) *Cache {
	c := New(lookupTimeout, cacheTTL, opts...)
	c.resolver = r
	return c
}

// LookupMX returns MX records for the domain, using the cache when possible.
// Concurrent lookups for the same domain are deduplicated via singleflight.
// A waiter whose ctx ends stops waiting; the shared lookup keeps running
// under its own timeout and still fills the cache.
func (c *Cache) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	c.mu.Lock()

	if e, ok := c.entries[domain]; ok {
		select {
		case <-e.done:
			// Completed entry - check if still valid
			if time.Now().Before(e.expires) {
				c.mu.Unlock()
				return copyMX(e.records), e.err
			}
			// Expired, fall through to refresh
		default:
			// Lookup in progress - wait for it
			c.mu.Unlock()
			return c.wait(ctx, e)
		}
	}

	// Start new lookup
	e := &entry{done: make(chan struct{})}
	c.entries[domain] = e
	c.mu.Unlock()

	go c.fill(domain, e)
	return c.wait(ctx, e)
}

func (c *Cache) wait(ctx context.Context, e *entry) ([]*net.MX, error) {
	select {
	case <-e.done:
		return copyMX(e.records), e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fill(domain string, e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), c.lookupTimeout)
	defer cancel()

	fromRemote := c.resolve(ctx, domain, e)

	// transient failures are served to current waiters but not kept
	ttl := c.cacheTTL
	if !keep(e.err) {
		ttl = 0
	}
	e.expires = time.Now().Add(ttl)
	close(e.done)

	if c.remote != nil && !fromRemote && e.err == nil && len(e.records) > 0 {
		c.storeRemote(domain, e.records)
	}
}

// resolve fills e from the remote tier or DNS. A panic in either is
// reported as check.ErrResolverPanic.
func (c *Cache) resolve(ctx context.Context, domain string, e *entry) (fromRemote bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("mx_resolver_panic", zap.String("domain", domain), zap.Any("panic", r))
			e.records = nil
			e.err = fmt.Errorf("%w: %v", check.ErrResolverPanic, r)
			fromRemote = false
		}
	}()

	if c.remote != nil {
		rctx, rcancel := context.WithTimeout(ctx, c.remoteTimeout)
		records, ok, err := c.remote.Get(rctx, domain)
		rcancel()
		if err != nil {
			c.log.Warn("mx_cache_remote_get_failed", zap.String("domain", domain), zap.Error(err))
		}
		if ok {
			e.records = records
			return true
		}
	}

	e.records, e.err = c.resolver.LookupMX(ctx, domain)
	return false
}

// storeRemote runs after waiters were released, on its own deadline.
func (c *Cache) storeRemote(domain string, records []*net.MX) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("mx_cache_remote_set_panic", zap.String("domain", domain), zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), c.remoteTimeout)
	defer cancel()
	if err := c.remote.Set(ctx, domain, records, c.cacheTTL); err != nil {
		c.log.Warn("mx_cache_remote_set_failed", zap.String("domain", domain), zap.Error(err))
	}
}

// keep reports whether an answer with err may be cached for the full TTL.
func keep(err error) bool {
	return !isTransient(err) && !errors.Is(err, check.ErrResolverPanic)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	return false
}

// Prune removes completed entries whose TTL has passed.
func (c *Cache) Prune() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		select {
		case <-e.done:
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		default:
		}
	}
}

// StartJanitor prunes expired entries every interval until ctx is done.
func (c *Cache) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Prune()
			}
		}
	}()
}

// Close releases the remote tier, if any.
func (c *Cache) Close() error {
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyMX returns a deep copy of MX records to prevent callers from
// mutating cached data (e.g., via sort.Slice).
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		if r == nil {
			continue
		}
		cp := *r
		out[i] = &cp
	}
	return out
}
