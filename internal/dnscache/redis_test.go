package dnscache_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/mailscore/internal/dnscache"
)

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisStore_UnreachableIsAnError(t *testing.T) {
	s := dnscache.NewRedisStore(unreachableRedis(), dnscache.WithRedisPrefix("test:mx:"))
	defer s.Close()

	_, ok, err := s.Get(context.Background(), "example.com")
	assert.Error(t, err)
	assert.False(t, ok)

	err = s.Set(context.Background(), "example.com", []*net.MX{{Host: "mx.", Pref: 1}}, time.Minute)
	assert.Error(t, err)
}

func TestCache_UnreachableRedisFallsBackToDNS(t *testing.T) {
	r := &mockResolver{records: []*net.MX{{Host: "mx.test.", Pref: 10}}}
	c := dnscache.NewWithResolver(2*time.Second, time.Minute, r,
		dnscache.WithRemote(dnscache.NewRedisStore(unreachableRedis())))
	defer c.Close()

	recs, err := c.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int64(1), r.calls.Load())
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	return mr, rdb
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := dnscache.NewRedisStore(rdb, dnscache.WithRedisPrefix("test:mx:"))
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	in := []*net.MX{
		{Host: "mx1.example.com.", Pref: 10},
		nil,
		{Host: "mx2.example.com.", Pref: 20},
	}
	require.NoError(t, s.Set(ctx, "example.com", in, time.Minute))

	assert.True(t, mr.Exists("test:mx:example.com"))
	assert.Equal(t, time.Minute, mr.TTL("test:mx:example.com"))

	out, ok, err := s.Get(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []*net.MX{
		{Host: "mx1.example.com.", Pref: 10},
		{Host: "mx2.example.com.", Pref: 20},
	}, out)

	mr.FastForward(time.Minute + time.Second)
	_, ok, err = s.Get(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := dnscache.NewRedisStore(rdb)
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "example.org", []*net.MX{{Host: "mx.", Pref: 1}}, time.Minute))
	assert.True(t, mr.Exists("mailscore:mx:example.org"))
}

func TestRedisStore_EmptyAndMalformed(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := dnscache.NewRedisStore(rdb, dnscache.WithRedisPrefix("test:mx"))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, mr.Set("test:mx:empty.test", "[]"))
	_, ok, err := s.Get(ctx, "empty.test")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("test:mx:bad.test", "{not json"))
	_, ok, err = s.Get(ctx, "bad.test")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCache_RedisTierSharedAcrossCaches(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	r := &mockResolver{records: []*net.MX{{Host: "mx.test.", Pref: 10}}}

	first := dnscache.NewWithResolver(2*time.Second, time.Minute, r,
		dnscache.WithRemote(dnscache.NewRedisStore(rdb)))
	defer first.Close()
	_, err := first.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mr.Exists("mailscore:mx:example.com") },
		time.Second, 5*time.Millisecond)

	// a second replica with its own local cache reads the shared answer
	second := dnscache.NewWithResolver(2*time.Second, time.Minute, r,
		dnscache.WithRemote(dnscache.NewRedisStore(rdb)))
	recs, err := second.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "mx.test.", recs[0].Host)
	assert.Equal(t, int64(1), r.calls.Load())
}
