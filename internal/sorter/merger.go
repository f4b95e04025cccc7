// Package sorter implements the Barrel Merger. For every forward barrel it
// folds the new postings into the matching inverted barrel, sorted by word
// id, and records where each word's postings start in the lexicon.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/lexicon"
	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/metrics"
)

// Result summarizes one Rebuild.
type Result struct {
	Barrels  int
	Postings int
	Elapsed  time.Duration
}

// Merger is not safe to run concurrently with itself or with the indexer
// against the same directories.
type Merger struct {
	lex         *lexicon.Lexicon
	lexiconPath string
	forwardDir  string
	invertedDir string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Merger)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mg *Merger) { mg.metrics = m }
}

func NewMerger(lex *lexicon.Lexicon, lexiconPath, forwardDir, invertedDir string, opts ...Option) *Merger {
	m := &Merger{
		lex:         lex,
		lexiconPath: lexiconPath,
		forwardDir:  forwardDir,
		invertedDir: invertedDir,
		logger:      logger.WithComponent("barrel-merger"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rebuild merges every forward barrel on disk into its inverted barrel. A
// merged forward barrel is truncated. The lexicon is saved at the end even
// when a barrel fails; that barrel's inverted file may be left partially
// written.
func (m *Merger) Rebuild(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}
	defer func() { res.Elapsed = time.Since(start) }()

	numbers, err := m.forwardBarrels()
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(m.invertedDir, 0755); err != nil {
		return res, fmt.Errorf("creating inverted barrel directory: %w", err)
	}
	m.logger.Info("merge started", "forward_barrels", len(numbers))

	var runErr error
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		written, err := m.mergeBarrel(n)
		if err != nil {
			m.logger.Error("barrel merge failed", "barrel", n, "error", err)
			runErr = fmt.Errorf("merging barrel %d: %w", n, err)
			break
		}
		if written > 0 {
			res.Barrels++
			res.Postings += written
			if m.metrics != nil {
				m.metrics.BarrelsMergedTotal.Inc()
				m.metrics.PostingsWrittenTotal.Add(float64(written))
			}
		}
	}

	if err := m.lex.Save(m.lexiconPath); err != nil {
		m.logger.Error("saving lexicon failed", "error", err)
		runErr = multierror.Append(runErr, err).ErrorOrNil()
	}
	if m.metrics != nil {
		m.metrics.MergeDuration.Observe(time.Since(start).Seconds())
	}
	m.logger.Info("merge finished",
		"barrels", res.Barrels,
		"postings", res.Postings,
		"duration", time.Since(start),
	)
	return res, runErr
}

// forwardBarrels returns the numbers of the forward barrel files present,
// ascending.
func (m *Merger) forwardBarrels() ([]int, error) {
	entries, err := os.ReadDir(m.forwardDir)
	if err != nil {
		return nil, fmt.Errorf("reading forward barrel directory: %w", err)
	}
	var numbers []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := barrel.ParseForwardName(e.Name()); ok {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}

// mergeBarrel rewrites inverted barrel n from its current lines followed by
// the forward barrel's lines and returns the number of lines written. A
// barrel with no forward lines is left as is.
func (m *Merger) mergeBarrel(n int) (int, error) {
	fwdPath := barrel.ForwardPath(m.forwardDir, n)
	invPath := barrel.InvertedPath(m.invertedDir, n)

	fresh, err := barrel.ReadAll(fwdPath)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	existing, err := barrel.ReadAll(invPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	combined := append(existing, fresh...)
	for _, p := range combined {
		if barrel.Number(p.Word) != n {
			return 0, apperrors.Corruptf("barrel %d holds word id %d", n, p.Word)
		}
	}

	buckets := BucketSort(combined)
	w, err := barrel.CreateInverted(invPath)
	if err != nil {
		return 0, err
	}
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		loc := barrel.Location{Barrel: n, Offset: w.Offset()}
		if err := m.lex.SetLocation(bucket[0].Word, loc); err != nil {
			w.Close()
			return 0, err
		}
		for _, p := range bucket {
			if err := w.Write(p); err != nil {
				w.Close()
				return 0, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	if err := os.Truncate(fwdPath, 0); err != nil {
		return 0, fmt.Errorf("truncating forward barrel %d: %w", n, err)
	}
	m.logger.Debug("barrel merged",
		"barrel", n,
		"existing", len(existing),
		"new", len(fresh),
		"words", countWords(buckets),
	)
	return w.Lines(), nil
}

func countWords(b *Buckets) int {
	n := 0
	for _, bucket := range b {
		if len(bucket) > 0 {
			n++
		}
	}
	return n
}
