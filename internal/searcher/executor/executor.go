// Package executor runs a parsed query against the query engine and turns
// the ranked fingerprints into URLs through the document registry.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
)

// Searcher is the query engine.
type Searcher interface {
	Search(ctx context.Context, stems []string) ([]ranker.ScoredDoc, error)
}

// Resolver maps fingerprints to URLs. docindex.Registry implements it.
type Resolver interface {
	URL(fp uint32) (string, bool)
}

type Result struct {
	Fingerprint uint32 `json:"fingerprint"`
	Score       int    `json:"score"`
	URL         string `json:"url"`
}

type SearchResult struct {
	Query     string   `json:"query"`
	Stems     []string `json:"stems"`
	TotalHits int      `json:"total_hits"`
	Results   []Result `json:"results"`
}

type Executor struct {
	searcher Searcher
	mu       sync.RWMutex
	resolver Resolver
	logger   *slog.Logger
}

func New(searcher Searcher, resolver Resolver) *Executor {
	return &Executor{
		searcher: searcher,
		resolver: resolver,
		logger:   logger.WithComponent("query-executor"),
	}
}

// SetResolver swaps the registry used for URL lookups, typically after a
// new indexing run.
func (e *Executor) SetResolver(r Resolver) {
	e.mu.Lock()
	e.resolver = r
	e.mu.Unlock()
}

// Execute ranks the plan's stems and returns at most limit results; limit
// <= 0 returns all of them. TotalHits counts every ranked document.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	res := &SearchResult{
		Query:   plan.RawQuery,
		Stems:   plan.Terms,
		Results: []Result{},
	}
	if plan.Empty() {
		return res, nil
	}
	ranked, err := e.searcher.Search(ctx, plan.Terms)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", plan.RawQuery, err)
	}
	res.TotalHits = len(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	e.mu.RLock()
	resolver := e.resolver
	e.mu.RUnlock()

	unresolved := 0
	for _, d := range ranked {
		url, ok := "", false
		if resolver != nil {
			url, ok = resolver.URL(d.Fingerprint)
		}
		if !ok {
			unresolved++
		}
		res.Results = append(res.Results, Result{Fingerprint: d.Fingerprint, Score: d.Score, URL: url})
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"total_hits", res.TotalHits,
		"results", len(res.Results),
		"unresolved", unresolved,
	)
	return res, nil
}
