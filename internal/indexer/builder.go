// Package indexer implements the Forward-Index Builder. It scans a directory
// of batch files, assigns word ids through the lexicon, accumulates hit
// records per barrel and appends them to the forward barrels, registering
// every new document in the document registry.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/docindex"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/lexicon"
	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
)

// persistTimeout bounds the final lexicon and registry save.
const persistTimeout = 30 * time.Second

// Builder owns the lexicon and registry for the duration of one run.
type Builder struct {
	lex         *lexicon.Lexicon
	lexiconPath string
	registry    docindex.Registry
	router      *shard.Router
	pattern     string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithPattern sets the batch file glob. Defaults to source.DefaultPattern.
func WithPattern(pattern string) Option {
	return func(b *Builder) { b.pattern = pattern }
}

// WithMetrics records indexing metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder creates a Builder. The lexicon is saved to lexiconPath at the
// end of every Build.
func NewBuilder(lex *lexicon.Lexicon, lexiconPath string, registry docindex.Registry, router *shard.Router, opts ...Option) *Builder {
	b := &Builder{
		lex:         lex,
		lexiconPath: lexiconPath,
		registry:    registry,
		router:      router,
		pattern:     source.DefaultPattern,
		logger:      logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build indexes every batch file in dir. Faults in a single batch are
// recorded in its BatchResult and the run continues; a capacity fault stops
// the run. The lexicon and registry are persisted at the end whatever
// happened, and the returned Result is always non-nil.
//
// ctx is checked between batches only.
func (b *Builder) Build(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()
	res := &Result{}
	defer func() {
		res.Words = b.lex.Len()
		res.Elapsed = time.Since(start)
	}()

	batches, err := source.List(dir, b.pattern)
	if err != nil {
		return res, err
	}
	b.logger.Info("index build started", "dir", dir, "batches", len(batches))

	var runErr error
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		br := b.buildBatch(batch)
		res.Batches = append(res.Batches, br)
		res.Added += br.Added
		b.observeBatch(br)
		if br.Err != nil && errors.Is(br.Err, apperrors.ErrCapacityExceeded) {
			runErr = br.Err
			break
		}
	}

	// Flushed batches are already in the forward barrels; their registry
	// entries must be saved even when ctx was cancelled mid-run.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := b.persist(pctx); err != nil {
		runErr = multierror.Append(runErr, err).ErrorOrNil()
	}

	if b.metrics != nil {
		b.metrics.LexiconWords.Set(float64(b.lex.Len()))
		b.metrics.IndexDuration.Observe(time.Since(start).Seconds())
	}
	b.logger.Info("index build finished",
		"added", res.Added,
		"words", b.lex.Len(),
		"failed_batches", len(res.failed()),
		"duration", time.Since(start),
	)
	return res, runErr
}

// buildBatch indexes one batch. Registry entries are committed only once the
// batch's fragments have been appended to the forward barrels.
func (b *Builder) buildBatch(batch source.Batch) BatchResult {
	br := BatchResult{Name: batch.Name}
	articles, err := source.Load(batch)
	if err != nil {
		b.logger.Error("batch skipped", "batch", batch.Name, "error", err)
		br.Err = err
		return br
	}

	set := index.NewSet()
	type staged struct {
		fp  uint32
		url string
	}
	var pending []staged
	seen := make(map[uint32]struct{})

	for _, a := range articles {
		fp := docindex.Fingerprint(string(a.ID))
		if _, dup := seen[fp]; dup || b.registry.Contains(fp) {
			continue
		}
		seen[fp] = struct{}{}

		titleIDs, err := b.wordIDs(tokenizer.Tokenize(a.Title))
		if err != nil {
			br.Err = fmt.Errorf("batch %s: %w", batch.Name, err)
			b.logger.Error("batch aborted", "batch", batch.Name, "error", err)
			return br
		}
		contentIDs, err := b.wordIDs(tokenizer.Tokenize(a.Content))
		if err != nil {
			br.Err = fmt.Errorf("batch %s: %w", batch.Name, err)
			b.logger.Error("batch aborted", "batch", batch.Name, "error", err)
			return br
		}
		set.AddDocument(fp, titleIDs, contentIDs)
		pending = append(pending, staged{fp: fp, url: a.URL})
		b.logger.Debug("document indexed in memory",
			"fingerprint", fp,
			"title_tokens", len(titleIDs),
			"content_tokens", len(contentIDs),
		)
	}

	lines, err := b.router.Flush(set)
	if err != nil {
		br.Err = fmt.Errorf("batch %s: %w", batch.Name, err)
		b.logger.Error("batch flush failed", "batch", batch.Name, "error", err)
		return br
	}
	for _, p := range pending {
		b.registry.Add(p.fp, p.url)
	}
	br.Added = len(pending)
	br.Postings = lines
	b.logger.Info("batch indexed",
		"batch", batch.Name,
		"articles", len(articles),
		"added", br.Added,
		"postings", lines,
	)
	return br
}

func (b *Builder) wordIDs(stems []string) ([]uint32, error) {
	ids := make([]uint32, len(stems))
	for i, s := range stems {
		id, err := b.lex.Allocate(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (b *Builder) persist(ctx context.Context) error {
	var result *multierror.Error
	if err := b.lex.Save(b.lexiconPath); err != nil {
		b.logger.Error("saving lexicon failed", "error", err)
		result = multierror.Append(result, err)
	}
	if err := b.registry.Save(ctx); err != nil {
		b.logger.Error("saving document registry failed", "error", err)
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (b *Builder) observeBatch(br BatchResult) {
	if b.metrics == nil {
		return
	}
	status := "ok"
	if br.Err != nil {
		status = "failed"
	}
	b.metrics.IndexBatchesTotal.WithLabelValues(status).Inc()
	b.metrics.DocsIndexedTotal.Add(float64(br.Added))
}
