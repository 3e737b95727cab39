// Package orchestrator sequences one search or one index invocation across the
// result cache and the index engine.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/tracing"
)

// ResultLimit is the number of results a search returns. Cache keys do not
// encode it, so it must stay fixed.
const ResultLimit = 5

type ResultCache interface {
	Get(ctx context.Context, key string) ([]executor.ScoredDocument, bool, error)
	Put(ctx context.Context, key string, value []executor.ScoredDocument, ttl time.Duration) error
	InvalidateAll(ctx context.Context) (int64, error)
}

type QueryEngine interface {
	Query(ctx context.Context, text string, limit int) ([]executor.ScoredDocument, error)
}

type IndexBuilder interface {
	Build(ctx context.Context, root string, flush bool) (*indexer.IndexStats, error)
}

type SearchRequest struct {
	Query      string
	TTL        time.Duration
	FlushCache bool
}

// SearchOutcome is the result of a successful search. FlushErr and PutErr
// hold non-fatal cache failures that the caller may report: the requested
// invalidation and the write of fresh results respectively.
type SearchOutcome struct {
	Results  []executor.ScoredDocument
	CacheHit bool
	Elapsed  time.Duration
	TTL      time.Duration
	FlushErr error
	PutErr   error
}

type IndexRequest struct {
	Path       string
	FlushCache bool
}

type IndexOutcome struct {
	Stats       *indexer.IndexStats
	Invalidated int64
	FlushErr    error
}

type Orchestrator struct {
	cache   ResultCache
	engine  QueryEngine
	builder IndexBuilder
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func New(c ResultCache, engine QueryEngine, builder IndexBuilder, m *metrics.Metrics) *Orchestrator {
	if m == nil {
		m = metrics.New()
	}
	return &Orchestrator{
		cache:   c,
		engine:  engine,
		builder: builder,
		metrics: m,
		logger:  logger.WithComponent("orchestrator"),
		now:     time.Now,
	}
}

// Search answers req from the cache when possible, otherwise from the index,
// storing fresh results for req.TTL. Only index and query failures are
// returned as errors.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchOutcome, error) {
	if req.TTL <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "ttl must be a positive number of seconds, got %v", req.TTL)
	}
	start := o.now()
	out := &SearchOutcome{TTL: req.TTL}
	key := cache.Key(req.Query)
	ctx, span := tracing.Start(ctx, "search", key)
	defer func() {
		span.End()
		span.Log(o.logger)
	}()

	if req.FlushCache {
		_, flushSpan := tracing.StartChild(ctx, "cache_invalidate")
		if _, err := o.cache.InvalidateAll(ctx); err != nil {
			o.logger.Warn("cache flush failed", "error", err)
			out.FlushErr = err
		}
		flushSpan.End()
	}

	_, getSpan := tracing.StartChild(ctx, "cache_get")
	cached, hit, _ := o.cache.Get(ctx, key)
	getSpan.SetAttr("hit", hit)
	getSpan.End()
	if hit {
		out.Results = cached
		out.CacheHit = true
		out.Elapsed = o.now().Sub(start)
		o.record("hit", out)
		return out, nil
	}

	queryCtx, querySpan := tracing.StartChild(ctx, "query")
	results, err := o.engine.Query(queryCtx, req.Query, ResultLimit)
	querySpan.SetAttr("results", len(results))
	querySpan.End()
	if err != nil {
		o.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	out.Results = results
	out.Elapsed = o.now().Sub(start)

	_, putSpan := tracing.StartChild(ctx, "cache_put")
	if err := o.cache.Put(ctx, key, results, req.TTL); err != nil {
		o.logger.Warn("caching results failed", "key", key, "error", err)
		out.PutErr = err
	}
	putSpan.End()
	o.record("miss", out)
	return out, nil
}

// Index rebuilds the index from req.Path. With FlushCache, cached results are
// dropped first and the existing index is discarded rather than reused.
func (o *Orchestrator) Index(ctx context.Context, req IndexRequest) (*IndexOutcome, error) {
	out := &IndexOutcome{}
	if req.FlushCache {
		n, err := o.cache.InvalidateAll(ctx)
		if err != nil {
			o.logger.Warn("cache flush failed", "error", err)
			out.FlushErr = err
		}
		out.Invalidated = n
	}
	stats, err := o.builder.Build(ctx, req.Path, req.FlushCache)
	if err != nil {
		return nil, err
	}
	out.Stats = stats
	return out, nil
}

func (o *Orchestrator) record(status string, out *SearchOutcome) {
	o.metrics.SearchQueriesTotal.WithLabelValues(status).Inc()
	o.metrics.SearchLatency.WithLabelValues(status).Observe(out.Elapsed.Seconds())
	o.metrics.SearchResultsCount.Observe(float64(len(out.Results)))
	o.logger.Info("search completed",
		"cache_status", status,
		"returned", len(out.Results),
		"elapsed", out.Elapsed,
	)
}
