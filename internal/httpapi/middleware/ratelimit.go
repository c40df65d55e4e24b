package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store keeps one token bucket per client key. A bucket holds Max tokens
// and refills at Max per Window.
type Store struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
	max     int
	window  time.Duration
	every   rate.Limit
	idleTTL time.Duration
	now     func() time.Time
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*Store)

// WithIdleTTL sets how long an unused bucket is kept. Defaults to twice
// the window; a bucket idle that long is full again anyway.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func withClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(limit int, window time.Duration, opts ...StoreOption) *Store {
	if window <= 0 {
		window = 10 * time.Minute
	}
	s := &Store{
		entries: make(map[string]*storeEntry),
		max:     limit,
		window:  window,
		every:   rate.Limit(float64(limit) / window.Seconds()),
		idleTTL: 2 * window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Max() int { return s.max }

func (s *Store) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(s.every, s.max)
	s.entries[key] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Remaining  int
	Reset      time.Duration // until the bucket is full again
	RetryAfter time.Duration // zero when allowed
}

// Take consumes one token for key.
func (s *Store) Take(key string) Decision {
	now := s.now()
	lim := s.get(key, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return Decision{RetryAfter: s.window, Reset: s.window}
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{RetryAfter: delay, Reset: s.untilFull(lim, now)}
	}
	tokens := lim.TokensAt(now)
	return Decision{
		Allowed:   true,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		Reset:     s.untilFull(lim, now),
	}
}

func (s *Store) untilFull(lim *rate.Limiter, now time.Time) time.Duration {
	missing := float64(s.max) - lim.TokensAt(now)
	if missing <= 0 || s.every <= 0 {
		return 0
	}
	return time.Duration(missing / float64(s.every) * float64(time.Second))
}

// Cleanup drops buckets not seen for idleTTL.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, every time.Duration) {
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
				s.Cleanup()
			}
		}
	}()
}

type KeyFunc func(r *http.Request) string

// ClientIP keys on the first X-Forwarded-For hop when trustXFF is set, and
// on the connection's remote host otherwise.
func ClientIP(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

type RateLimitOptions struct {
	KeyFn KeyFunc // defaults to ClientIP(false)
}

// RateLimit rejects clients that exhausted their bucket with 429. Every
// response carries RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset;
// rejections add Retry-After. A nil store disables limiting.
func RateLimit(store *Store, opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIP(false)
	}
	return func(next http.Handler) http.Handler {
		if store == nil || store.Max() <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := store.Take(opts.KeyFn(r))

			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(store.Max()))
			h.Set("RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(ceilSeconds(dec.Reset)))

			if !dec.Allowed {
				h.Set("Retry-After", strconv.Itoa(ceilSeconds(dec.RetryAfter)))
				writeError(w, http.StatusTooManyRequests, "Too many requests, please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
