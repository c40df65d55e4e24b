// Package mailscore scores email address quality: syntax validity, mail
// exchanger reachability, disposable, role-based and free-provider
// classification, and typo suggestions.
//
// Basic usage:
//
//	result, err := mailscore.New().Validate(ctx, "user@example.com")
//
// Bulk scoring with a shared MX cache:
//
//	v := mailscore.New().WithCache(mailscore.CacheOptions{TTL: 5 * time.Minute})
//	defer v.Close()
//	bulk, err := v.ValidateBulk(ctx, emails, 50)
package mailscore

import (
	"github.com/redis/go-redis/v9"

	"github.com/optimode/mailscore/check"
	"github.com/optimode/mailscore/internal/dnscache"
	"github.com/optimode/mailscore/internal/lists"
	"github.com/optimode/mailscore/types"
)

// MXRecord is a re-export from the types package so that consumers
// don't need to import the types package directly.
type MXRecord = types.MXRecord

// Checks is a re-export.
type Checks = types.Checks

// Meta is a re-export.
type Meta = types.Meta

// Resolver is the DNS capability the validator needs. *net.Resolver satisfies it.
type Resolver = check.Resolver

// Tables is the set of classification tables used by the validator.
type Tables = lists.Tables

// RemoteCache is a shared MX answer cache tier.
type RemoteCache = dnscache.Remote

// DefaultTables returns the embedded classification tables.
func DefaultTables() *Tables {
	return lists.Default()
}

// NewTables builds custom classification tables, for example smaller
// fixtures in tests or site-specific lists.
func NewTables(disposable, roleBased, freeProviders []string, typos map[string]string) *Tables {
	return lists.New(disposable, roleBased, freeProviders, typos)
}

// NewRedisCache returns a RemoteCache backed by rdb. Keys are prefixed
// with "mailscore:mx". The cache takes ownership of rdb.
func NewRedisCache(rdb *redis.Client) RemoteCache {
	return dnscache.NewRedisStore(rdb)
}
