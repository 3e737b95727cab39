// Package cache memoizes ranked search results for a limited time.
//
// Entries live under "query:" + the raw query text and carry their own expiry,
// so an entry is treated as absent once it expires even if the store still
// holds it. The cache never makes a search fail: by default store errors read
// as misses and write errors are only reported.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/resilience"
)

// KeyPrefix starts every key written by the cache.
const KeyPrefix = "query:"

// Key derives the cache key of a query. The text is used verbatim: queries
// differing only in case or spacing are cached separately.
func Key(query string) string {
	return KeyPrefix + query
}

// ReadPolicy decides what Get does with store and decode failures.
type ReadPolicy int

const (
	// TreatErrorAsMiss reports failures as a miss with a nil error.
	TreatErrorAsMiss ReadPolicy = iota
	// PropagateErrors returns failures as ErrCacheStore.
	PropagateErrors
)

type Options struct {
	OpTimeout        time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	Policy           ReadPolicy
	Now              func() time.Time
	Metrics          *metrics.Metrics
}

// OptionsFromConfig maps the cache section of the configuration.
func OptionsFromConfig(cfg config.CacheConfig, m *metrics.Metrics) Options {
	return Options{
		OpTimeout:        cfg.OpTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerReset:     cfg.BreakerReset,
		Policy:           TreatErrorAsMiss,
		Metrics:          m,
	}
}

type entry struct {
	Key       string                    `json:"key"`
	ExpiresAt time.Time                 `json:"expires_at"`
	Value     []executor.ScoredDocument `json:"value"`
}

type ResultCache struct {
	store   Store
	opts    Options
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, opts Options) *ResultCache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	m := opts.Metrics
	return &ResultCache{
		store: store,
		opts:  opts,
		breaker: resilience.NewCircuitBreaker("cache-store", resilience.CircuitBreakerConfig{
			FailureThreshold: opts.BreakerThreshold,
			ResetTimeout:     opts.BreakerReset,
			Now:              opts.Now,
			OnStateChange: func(name string, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		}),
		metrics: m,
		logger:  logger.WithComponent("result-cache").With("store", store.Describe()),
	}
}

// Get returns the unexpired value stored under key. The boolean reports a
// hit. Under TreatErrorAsMiss the error is always nil.
func (c *ResultCache) Get(ctx context.Context, key string) ([]executor.ScoredDocument, bool, error) {
	var data []byte
	var absent bool
	err := c.do(ctx, "get", func(ctx context.Context) error {
		b, err := c.store.Get(ctx, key)
		if errors.Is(err, ErrMiss) {
			absent = true
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return c.readFailure(key, err)
	}
	if absent {
		c.recordMiss(key, "absent")
		return nil, false, nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return c.readFailure(key, fmt.Errorf("decoding entry: %w", err))
	}
	if e.Key != key {
		return c.readFailure(key, fmt.Errorf("entry key %q does not match", e.Key))
	}
	if !c.opts.Now().Before(e.ExpiresAt) {
		c.recordMiss(key, "expired")
		return nil, false, nil
	}

	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "key", key, "results", len(e.Value))
	return e.Value, true, nil
}

// Put stores value under key until now+ttl, replacing any existing entry.
func (c *ResultCache) Put(ctx context.Context, key string, value []executor.ScoredDocument, ttl time.Duration) error {
	if ttl <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "cache ttl must be positive, got %v", ttl)
	}
	data, err := json.Marshal(entry{
		Key:       key,
		ExpiresAt: c.opts.Now().Add(ttl),
		Value:     value,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCacheStore, err, "encoding entry")
	}
	err = c.do(ctx, "put", func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, ttl)
	})
	if err != nil {
		c.metrics.CacheErrorsTotal.WithLabelValues("put").Inc()
		return apperrors.Wrap(apperrors.ErrCacheStore, err, "storing "+key)
	}
	c.logger.Debug("cache put", "key", key, "results", len(value), "ttl", ttl)
	return nil
}

// InvalidateAll removes every entry written by the cache and returns how many
// were removed. It succeeds on an empty cache.
func (c *ResultCache) InvalidateAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.do(ctx, "invalidate", func(ctx context.Context) error {
		n, err := c.store.DeletePrefix(ctx, KeyPrefix)
		deleted = n
		return err
	})
	if err != nil {
		c.metrics.CacheErrorsTotal.WithLabelValues("invalidate").Inc()
		return 0, apperrors.Wrap(apperrors.ErrCacheStore, err, "invalidating cache")
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Ping checks that the store is reachable, bypassing the circuit breaker.
func (c *ResultCache) Ping(ctx context.Context) error {
	err := resilience.Within(ctx, "cache ping", c.opts.OpTimeout, c.store.Ping)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCacheStore, err, c.store.Describe())
	}
	return nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) Describe() string {
	return c.store.Describe()
}

func (c *ResultCache) Close() error {
	return c.store.Close()
}

// do runs one store roundtrip bounded by OpTimeout. Once the breaker opens,
// later calls fail immediately instead of waiting out another timeout.
func (c *ResultCache) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.breaker.Execute(func() error {
		return resilience.Within(ctx, "cache "+op, c.opts.OpTimeout, fn)
	})
}

func (c *ResultCache) readFailure(key string, err error) ([]executor.ScoredDocument, bool, error) {
	c.metrics.CacheErrorsTotal.WithLabelValues("get").Inc()
	if c.opts.Policy == PropagateErrors {
		return nil, false, apperrors.Wrap(apperrors.ErrCacheStore, err, "reading "+key)
	}
	c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
	reason := "error"
	if errors.Is(err, resilience.ErrTimeout) {
		reason = "timeout"
	}
	c.recordMiss(key, reason)
	return nil, false, nil
}

func (c *ResultCache) recordMiss(key, reason string) {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
	c.logger.Debug("cache miss", "key", key, "reason", reason)
}
