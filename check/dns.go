package check

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/mailscore/types"
)

// ErrResolverPanic is returned when the MX lookup crashed instead of answering.
// It is the only failure of the MX stage that is not folded into "no records".
var ErrResolverPanic = errors.New("mailscore: MX resolver panicked")

// Resolver is the DNS capability the MX stage needs. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// LookupFunc performs one MX query.
type LookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// MXConfig is the MX resolver configuration.
type MXConfig struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// MXResolver resolves mail exchangers for a domain under a hard deadline.
type MXResolver struct {
	cfg    MXConfig
	lookup LookupFunc // injectable for testability
}

// NewMXResolver creates an MX resolver backed by r.
// A nil r selects the system resolver.
func NewMXResolver(cfg MXConfig, r Resolver) *MXResolver {
	if r == nil {
		r = &net.Resolver{}
	}
	return NewMXResolverWithLookup(cfg, r.LookupMX)
}

// NewMXResolverWithLookup creates an MX resolver that calls fn for every query.
func NewMXResolverWithLookup(cfg MXConfig, fn LookupFunc) *MXResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MXResolver{cfg: cfg, lookup: fn}
}

type mxAnswer struct {
	records []*net.MX
	err     error
}

// Lookup returns the MX records of domain sorted by ascending priority.
//
// Timeouts, DNS errors and empty answers all yield an empty, non-nil slice
// and a nil error. A lookup still running at the deadline is abandoned; its
// late answer is dropped. Only a crashed resolver returns an error.
func (c *MXResolver) Lookup(ctx context.Context, domain string) ([]types.MXRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// buffered so an abandoned lookup can always deliver and exit
	ch := make(chan mxAnswer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- mxAnswer{err: fmt.Errorf("%w: %v", ErrResolverPanic, r)}
			}
		}()
		records, err := c.lookup(ctx, domain)
		ch <- mxAnswer{records: records, err: err}
	}()

	var ans mxAnswer
	select {
	case ans = <-ch:
	case <-ctx.Done():
		c.cfg.Logger.Debug("mx_lookup_timeout",
			zap.String("domain", domain),
			zap.Duration("timeout", c.cfg.Timeout),
		)
		return []types.MXRecord{}, nil
	}

	if errors.Is(ans.err, ErrResolverPanic) {
		return nil, ans.err
	}
	// The system resolver may return usable records alongside an error
	// when some answers were malformed; those records still count.
	if len(ans.records) == 0 {
		if ans.err != nil {
			c.cfg.Logger.Debug("mx_lookup_failed",
				zap.String("domain", domain),
				zap.Error(ans.err),
			)
		}
		return []types.MXRecord{}, nil
	}

	sorted := make([]*net.MX, 0, len(ans.records))
	for _, mx := range ans.records {
		if mx != nil {
			sorted = append(sorted, mx)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Pref < sorted[j].Pref
	})

	out := make([]types.MXRecord, len(sorted))
	for i, mx := range sorted {
		out[i] = types.MXRecord{
			Exchange: strings.TrimSuffix(mx.Host, "."),
			Priority: int(mx.Pref),
		}
	}
	return out, nil
}
