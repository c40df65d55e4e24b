package mailscore

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/mailscore/check"
	"github.com/optimode/mailscore/internal/dnscache"
	"github.com/optimode/mailscore/internal/parse"
)

// Validator is the main fluent builder struct.
// Instantiate with the New() function.
// When using a cache with a remote tier, call Close() when done.
type Validator struct {
	err error // configuration error, returned on Validate()

	resolver  Resolver
	tables    *Tables
	mxTimeout time.Duration
	cacheOpts *CacheOptions
	log       *zap.Logger
	now       func() time.Time

	classifier *check.Classifier
	mx         *check.MXResolver
	dnsCache   *dnscache.Cache
	stopPrune  context.CancelFunc
}

// New creates a Validator using the system resolver, the embedded
// classification tables and a 5s MX timeout. MX answers are not cached
// unless WithCache is called.
func New() *Validator {
	v := &Validator{
		resolver:  &net.Resolver{},
		tables:    DefaultTables(),
		mxTimeout: DefaultMXTimeout,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	v.rebuild()
	return v
}

// WithResolver replaces the DNS resolver used for MX lookups.
func (v *Validator) WithResolver(r Resolver) *Validator {
	if r == nil {
		v.err = ErrNoResolver
		return v
	}
	v.resolver = r
	v.rebuild()
	return v
}

// WithTables replaces the classification tables.
func (v *Validator) WithTables(t *Tables) *Validator {
	if t == nil {
		t = DefaultTables()
	}
	v.tables = t
	v.rebuild()
	return v
}

// WithMXTimeout overrides the MX lookup deadline. Non-positive values
// restore the default.
func (v *Validator) WithMXTimeout(d time.Duration) *Validator {
	if d <= 0 {
		d = DefaultMXTimeout
	}
	v.mxTimeout = d
	v.rebuild()
	return v
}

// WithCache caches MX answers so repeated domains, in bulk requests or
// across requests, cost one DNS query per TTL.
// Optionally overrides the default CacheOptions.
func (v *Validator) WithCache(opts ...CacheOptions) *Validator {
	o := defaultCacheOptions()
	if len(opts) > 0 {
		o = opts[0]
		if o.TTL <= 0 {
			o.TTL = defaultCacheOptions().TTL
		}
	}
	v.cacheOpts = &o
	v.rebuild()
	return v
}

// WithLogger sets the logger for soft lookup failures. Default: no-op.
func (v *Validator) WithLogger(l *zap.Logger) *Validator {
	if l == nil {
		l = zap.NewNop()
	}
	v.log = l
	v.rebuild()
	return v
}

// WithClock overrides the clock used for latency measurement.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	if now != nil {
		v.now = now
	}
	return v
}

// Close releases resources held by the Validator: the cache janitor and
// the remote cache tier. Safe to call multiple times.
func (v *Validator) Close() error {
	if v.stopPrune != nil {
		v.stopPrune()
		v.stopPrune = nil
	}
	if v.dnsCache != nil {
		err := v.dnsCache.Close()
		v.dnsCache = nil
		return err
	}
	return nil
}

// rebuild wires the pipeline stages from the current settings.
func (v *Validator) rebuild() {
	v.classifier = check.NewClassifier(v.tables)

	lookup := check.LookupFunc(v.resolver.LookupMX)
	if v.cacheOpts != nil {
		if v.stopPrune != nil {
			v.stopPrune()
			v.stopPrune = nil
		}
		cacheOpts := []dnscache.Option{dnscache.WithLogger(v.log)}
		if v.cacheOpts.Remote != nil {
			cacheOpts = append(cacheOpts, dnscache.WithRemote(v.cacheOpts.Remote))
		}
		v.dnsCache = dnscache.NewWithResolver(v.mxTimeout, v.cacheOpts.TTL, v.resolver, cacheOpts...)
		if v.cacheOpts.PruneEvery > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			v.dnsCache.StartJanitor(ctx, v.cacheOpts.PruneEvery)
			v.stopPrune = cancel
		}
		lookup = v.dnsCache.LookupMX
	}

	v.mx = check.NewMXResolverWithLookup(check.MXConfig{
		Timeout: v.mxTimeout,
		Logger:  v.log,
	}, lookup)
}

// Validate scores a single email address.
//
// Structural problems (empty, too long, missing @, long local part) are
// reported in Result.Error and stop the pipeline; they are not Go errors.
// DNS timeouts and failures only clear Checks.MXRecords. The returned error
// is non-nil only for a misconfigured validator or a crashed resolver.
func (v *Validator) Validate(ctx context.Context, email string) (Result, error) {
	if v.err != nil {
		return Result{}, v.err
	}

	start := v.now()
	result := newResult(email)

	addr := parse.Split(email)
	if addr.Parsed {
		local, domain := addr.Local, addr.Domain
		result.Meta.Local = &local
		result.Meta.Domain = &domain
	}
	if addr.Failed() {
		msg := addr.Err
		result.Error = &msg
		result.LatencyMs = v.since(start)
		return result, nil // short-circuit
	}

	result.Checks.Syntax = check.Syntax(email)

	cls := v.classifier.Classify(addr)
	if cls.Suggestion != "" {
		suggestion := cls.Suggestion
		result.Meta.Suggestion = &suggestion
	}
	result.Meta.IsDisposable = cls.IsDisposable
	result.Checks.NotDisposable = !cls.IsDisposable
	result.Meta.IsRoleBased = cls.IsRoleBased
	result.Checks.NotRoleBased = !cls.IsRoleBased
	result.Meta.IsFreeProvider = cls.IsFreeProvider

	// no network cost for addresses that are already invalid
	if result.Checks.Syntax {
		records, err := v.mx.Lookup(ctx, addr.ASCIIDomain)
		if err != nil {
			return Result{}, fmt.Errorf("resolving MX for %q: %w", addr.Domain, err)
		}
		if len(records) > 0 {
			result.Checks.MXRecords = true
			result.Meta.MXRecords = records
		}
	}

	result.Valid = check.Valid(result.Checks, result.Meta.IsDisposable)
	result.Score = check.Score(result.Checks, result.Meta.IsFreeProvider)
	result.LatencyMs = v.since(start)
	return result, nil
}

func (v *Validator) since(start time.Time) int64 {
	return v.now().Sub(start).Milliseconds()
}

// ValidateBulk scores a batch of addresses. It rejects an empty batch and,
// when maxCount is positive, a batch larger than maxCount. Results keep the
// input order.
func (v *Validator) ValidateBulk(ctx context.Context, emails []string, maxCount int, opts ...ConcurrencyOptions) (BulkResult, error) {
	if len(emails) == 0 {
		return BulkResult{}, ErrEmptyBatch
	}
	if maxCount > 0 && len(emails) > maxCount {
		return BulkResult{}, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(emails), maxCount)
	}

	results, err := v.ValidateMany(ctx, emails, opts...)
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Count: len(results), Results: results}, nil
}

// ValidateMany validates multiple emails concurrently.
// The result order matches the input slice order, and each email is
// evaluated independently: a slow lookup for one never changes another's result.
// Emails are sorted by domain internally for optimal MX cache utilization.
func (v *Validator) ValidateMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) ([]Result, error) {
	if v.err != nil {
		return nil, v.err
	}

	workers := len(emails)
	if len(opts) > 0 && opts[0].Workers > 0 && opts[0].Workers < workers {
		workers = opts[0].Workers
	}

	results := make([]Result, len(emails))
	type job struct {
		idx    int
		email  string
		domain string
	}

	// Build and sort jobs by domain for cache locality
	jobSlice := make([]job, len(emails))
	for i, e := range emails {
		jobSlice[i] = job{idx: i, email: e, domain: parse.Split(e).Domain}
	}
	sort.SliceStable(jobSlice, func(i, j int) bool {
		return jobSlice[i].domain < jobSlice[j].domain
	})

	jobs := make(chan job, len(jobSlice))
	for _, j := range jobSlice {
		jobs <- j
	}
	close(jobs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := v.Validate(ctx, j.email)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("validating %q: %w", j.email, err)
					}
					mu.Unlock()
					continue
				}
				results[j.idx] = res
			}
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
