package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/ui"
)

func reportOutput(out *orchestrator.SearchOutcome) string {
	var buf bytes.Buffer
	reportSearch(ui.NewPrinter(&buf, true), out)
	return buf.String()
}

func TestReportSearchFlushFailureStillCached(t *testing.T) {
	got := reportOutput(&orchestrator.SearchOutcome{
		Results:  []executor.ScoredDocument{{Title: "a.txt", Path: "/d/a.txt", Score: 1}},
		TTL:      30 * time.Second,
		FlushErr: errors.New("redis down"),
	})
	assert.Contains(t, got, "[Warning] Could not flush cached results: redis down")
	assert.Contains(t, got, "[Info] Cached results for the coming 30 seconds")
	assert.NotContains(t, got, "were not cached")
}

func TestReportSearchWriteFailure(t *testing.T) {
	got := reportOutput(&orchestrator.SearchOutcome{
		TTL:    30 * time.Second,
		PutErr: errors.New("redis down"),
	})
	assert.Contains(t, got, "[Warning] Results were not cached: redis down")
	assert.NotContains(t, got, "Could not flush")
	assert.NotContains(t, got, "Cached results for the coming")
}

func TestReportSearchBothFailures(t *testing.T) {
	got := reportOutput(&orchestrator.SearchOutcome{
		TTL:      30 * time.Second,
		FlushErr: errors.New("flush down"),
		PutErr:   errors.New("put down"),
	})
	assert.Contains(t, got, "[Warning] Could not flush cached results: flush down")
	assert.Contains(t, got, "[Warning] Results were not cached: put down")
}

func TestReportSearchHit(t *testing.T) {
	got := reportOutput(&orchestrator.SearchOutcome{CacheHit: true, TTL: 30 * time.Second})
	assert.Contains(t, got, "[Cache Hit]")
	assert.NotContains(t, got, "Cached results for the coming")
}
