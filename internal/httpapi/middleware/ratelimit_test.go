package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func TestStore_TakeUntilEmptyThenRefill(t *testing.T) {
	clk := newClock()
	s := NewStore(2, time.Second, withClock(clk.Now))

	d := s.Take("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d = s.Take("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Second, d.Reset)

	d = s.Take("a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 500*time.Millisecond, d.RetryAfter)

	// other clients are unaffected
	assert.True(t, s.Take("b").Allowed)

	clk.Advance(500 * time.Millisecond)
	assert.True(t, s.Take("a").Allowed)
}

func TestStore_RejectionDoesNotConsume(t *testing.T) {
	clk := newClock()
	s := NewStore(1, time.Second, withClock(clk.Now))

	require.True(t, s.Take("a").Allowed)
	for i := 0; i < 5; i++ {
		require.False(t, s.Take("a").Allowed)
	}
	clk.Advance(time.Second)
	assert.True(t, s.Take("a").Allowed)
}

func TestStore_Cleanup(t *testing.T) {
	clk := newClock()
	s := NewStore(5, time.Minute, WithIdleTTL(time.Minute), withClock(clk.Now))

	s.Take("old")
	clk.Advance(2 * time.Minute)
	s.Take("fresh")
	s.Cleanup()

	assert.Equal(t, 1, s.Len())
}

func TestStore_Janitor(t *testing.T) {
	s := NewStore(5, time.Minute, WithIdleTTL(time.Nanosecond))
	s.Take("a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	clk := newClock()
	h := RateLimit(NewStore(2, 10*time.Minute, withClock(clk.Now)), RateLimitOptions{})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests, please slow down."}`, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	assert.Equal(t, "600", rec.Header().Get("RateLimit-Reset"))
}

func TestRateLimit_NilStoreDisables(t *testing.T) {
	h := RateLimit(nil, RateLimitOptions{})(okHandler)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("RateLimit-Limit"))
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "10.0.0.1", ClientIP(false)(req))
	assert.Equal(t, "203.0.113.9", ClientIP(true)(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", ClientIP(true)(req))

	req.RemoteAddr = "weird"
	assert.Equal(t, "weird", ClientIP(false)(req))
}
