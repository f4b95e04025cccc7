// Package pipeline wires the lexicon, registry, builder, merger and query
// engine together behind the entry points used by the binaries: Index,
// Merge, Run (index then merge), Watch and Search.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/sorter"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/docindex"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/lexicon"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/tracing"
)

// Publisher receives the index-complete event of every run that added
// documents.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunResult summarizes one Run.
type RunResult struct {
	TraceID   string
	Index     *indexer.Result
	Merge     *sorter.Result
	Published bool
}

// Pipeline owns the document registry across runs. The lexicon is reloaded
// from disk at the start of every operation so that separate processes (a
// CLI merge, a watch loop) always see each other's writes.
type Pipeline struct {
	store     config.StoreConfig
	indexCfg  config.IndexerConfig
	searchCfg config.SearchConfig
	registry  docindex.Registry
	publisher Publisher
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Pipeline)

func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithRetry sets the backoff used when publishing index-complete events.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(pl *Pipeline) { pl.retry = cfg }
}

// New opens the configured registry backend.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	registry, err := docindex.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening document registry: %w", err)
	}
	return NewWithRegistry(cfg, registry, opts...), nil
}

// NewWithRegistry uses an already open registry. Close closes it.
func NewWithRegistry(cfg *config.Config, registry docindex.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     cfg.Store,
		indexCfg:  cfg.Indexer,
		searchCfg: cfg.Search,
		registry:  registry,
		retry:     resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond},
		logger:    logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Registry() docindex.Registry {
	return p.registry
}

// Index runs the Forward-Index Builder over dir.
func (p *Pipeline) Index(ctx context.Context, dir string) (*indexer.Result, error) {
	lex, err := lexicon.Load(p.store.LexiconPath())
	if err != nil {
		return &indexer.Result{}, err
	}
	router, err := shard.NewRouter(p.store.ForwardPath())
	if err != nil {
		return &indexer.Result{Words: lex.Len()}, err
	}
	opts := []indexer.Option{indexer.WithPattern(p.indexCfg.BatchPattern)}
	if p.metrics != nil {
		opts = append(opts, indexer.WithMetrics(p.metrics))
	}
	b := indexer.NewBuilder(lex, p.store.LexiconPath(), p.registry, router, opts...)
	return b.Build(ctx, dir)
}

// pendingBarrels lists forward barrels with lines an earlier merge did not
// fold in.
func (p *Pipeline) pendingBarrels() ([]int, error) {
	router, err := shard.NewRouter(p.store.ForwardPath())
	if err != nil {
		return nil, err
	}
	return router.Pending()
}

// Merge folds the forward barrels into the inverted barrels.
func (p *Pipeline) Merge(ctx context.Context) (*sorter.Result, error) {
	lex, err := lexicon.Load(p.store.LexiconPath())
	if err != nil {
		return &sorter.Result{}, err
	}
	var opts []sorter.Option
	if p.metrics != nil {
		opts = append(opts, sorter.WithMetrics(p.metrics))
	}
	m := sorter.NewMerger(lex, p.store.LexiconPath(), p.store.ForwardPath(), p.store.InvertedPath(), opts...)
	return m.Rebuild(ctx)
}

// Run indexes dir and, when documents were added or an earlier merge left
// forward lines behind, merges and publishes an index-complete event. Batch
// faults do not fail the run; they are available through
// RunResult.Index.Failures.
func (p *Pipeline) Run(ctx context.Context, dir string) (*RunResult, error) {
	ctx, root := tracing.StartSpan(ctx, "pipeline.run", "")
	defer func() {
		root.End()
		root.Log(p.logger)
	}()
	res := &RunResult{TraceID: root.TraceID}

	var merr *multierror.Error
	record := func(span *tracing.Span, err error) {
		if err != nil {
			span.SetError(err)
			merr = multierror.Append(merr, err)
		}
	}

	ictx, span := tracing.StartChildSpan(ctx, "index")
	ir, err := p.Index(ictx, dir)
	res.Index = ir
	record(span, err)
	span.SetAttr("added", ir.Added)
	span.SetAttr("batches", len(ir.Batches))
	span.End()

	if !ir.Success() {
		pending, err := p.pendingBarrels()
		if err != nil {
			record(root, err)
			return res, p.finish(root, merr)
		}
		if len(pending) == 0 {
			p.logger.Info("no new documents, skipping merge", "dir", dir)
			return res, p.finish(root, merr)
		}
		p.logger.Warn("forward barrels left unmerged by an earlier run", "barrels", len(pending))
	}

	mctx, span := tracing.StartChildSpan(ctx, "merge")
	mr, err := p.Merge(mctx)
	res.Merge = mr
	record(span, err)
	if mr != nil {
		span.SetAttr("barrels", mr.Barrels)
		span.SetAttr("postings", mr.Postings)
	}
	span.End()

	if p.publisher != nil {
		pctx, span := tracing.StartChildSpan(ctx, "publish")
		event := p.completeEvent(res, root)
		err := resilience.Retry(pctx, "publish index-complete", p.retry, func() error {
			return p.publisher.Publish(pctx, kafka.Event{Key: string(event.Type), Value: event})
		})
		record(span, err)
		res.Published = err == nil
		span.End()
	}
	return res, p.finish(root, merr)
}

func (p *Pipeline) completeEvent(res *RunResult, root *tracing.Span) analytics.IndexEvent {
	e := analytics.IndexEvent{
		Type:          analytics.EventIndexComplete,
		TraceID:       res.TraceID,
		Added:         res.Index.Added,
		Words:         res.Index.Words,
		Batches:       len(res.Index.Batches),
		LatencyMs:     time.Since(root.StartTime).Milliseconds(),
		Timestamp:     time.Now().UTC(),
		FailedBatches: countFailed(res.Index),
	}
	if res.Merge != nil {
		e.BarrelsMerged = res.Merge.Barrels
		e.Postings = res.Merge.Postings
	}
	return e
}

func (p *Pipeline) finish(root *tracing.Span, merr *multierror.Error) error {
	err := merr.ErrorOrNil()
	if err != nil {
		root.SetError(err)
	}
	return err
}

func countFailed(r *indexer.Result) int {
	n := 0
	for _, br := range r.Batches {
		if br.Err != nil {
			n++
		}
	}
	return n
}

// Watch runs the pipeline over dir immediately and then every interval
// until ctx is cancelled. Run errors are logged, not returned.
func (p *Pipeline) Watch(ctx context.Context, dir string, interval time.Duration) error {
	if interval <= 0 {
		interval = p.indexCfg.PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.logger.Info("watching spool directory", "dir", dir, "interval", interval)
	for {
		if res, err := p.Run(ctx, dir); err != nil {
			p.logger.Error("pipeline run failed", "dir", dir, "trace_id", res.TraceID, "error", err)
		} else if ferr := res.Index.Failures(); ferr != nil {
			p.logger.Warn("batches failed", "dir", dir, "error", ferr)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Search opens the current index snapshot and ranks query. limit <= 0
// returns every ranked document.
func (p *Pipeline) Search(ctx context.Context, query string, limit int) (*executor.SearchResult, error) {
	eng, err := engine.Open(p.store.LexiconPath(), p.store.InvertedPath(),
		engine.WithPostingsPerTerm(p.searchCfg.PostingsPerTerm))
	if err != nil {
		return nil, err
	}
	return executor.New(eng, p.registry).Execute(ctx, parser.Parse(query), limit)
}

func (p *Pipeline) Close() error {
	return p.registry.Close()
}
