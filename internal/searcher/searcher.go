// Package searcher answers ranked queries against the committed index.
package searcher

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
)

type Searcher struct {
	cfg      config.IndexConfig
	executor *executor.Executor
	logger   *slog.Logger
}

func New(cfg config.IndexConfig) *Searcher {
	return &Searcher{
		cfg:      cfg,
		executor: executor.New(),
		logger:   logger.WithComponent("searcher"),
	}
}

// Query returns the top limit documents for text from the committed index.
// It fails with ErrIndexNotFound before the first build and ErrQueryParse on
// malformed text; a query matching nothing returns an empty slice.
func (s *Searcher) Query(ctx context.Context, text string, limit int) ([]executor.ScoredDocument, error) {
	snap, err := indexer.Open(ctx, s.cfg.Dir, s.cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	plan, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	result, err := s.executor.Execute(ctx, snap, plan, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Info("query answered",
		"query", text,
		"build_id", snap.Manifest().BuildID,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
	)
	return result.Results, nil
}
