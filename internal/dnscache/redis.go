package dnscache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Remote tier backed by Redis, so several service replicas
// share MX answers.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default: "mailscore:mx".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// NewRedisStore wraps an existing client. The store owns rdb and closes it on Close.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "mailscore:mx",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type storedMX struct {
	Host string `json:"host"`
	Pref uint16 `json:"pref"`
}

func (s *RedisStore) key(domain string) string {
	return s.prefix + ":" + domain
}

// Get implements Remote.
func (s *RedisStore) Get(ctx context.Context, domain string) ([]*net.MX, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stored []storedMX
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, false, err
	}
	if len(stored) == 0 {
		return nil, false, nil
	}
	out := make([]*net.MX, len(stored))
	for i, m := range stored {
		out[i] = &net.MX{Host: m.Host, Pref: m.Pref}
	}
	return out, true, nil
}

// Set implements Remote.
func (s *RedisStore) Set(ctx context.Context, domain string, records []*net.MX, ttl time.Duration) error {
	stored := make([]storedMX, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		stored = append(stored, storedMX{Host: r.Host, Pref: r.Pref})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(domain), b, ttl).Err()
}

// Close implements Remote.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
