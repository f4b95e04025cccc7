// Package engine implements the Query Engine: it resolves stems through a
// lexicon snapshot, reads each word's postings from its inverted barrel and
// ranks the documents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/lexicon"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
)

// DefaultPostingsPerTerm caps the postings read for one term.
const DefaultPostingsPerTerm = 30

// Term is a query stem resolved to the location of its postings.
type Term struct {
	Stem     string
	WordID   uint32
	Location barrel.Location
}

// Engine serves concurrent searches over one lexicon snapshot. Every search
// first checks the lexicon file and reloads the snapshot when a merge has
// rewritten it; searches in flight finish on the old one. Searches must not
// overlap a merge rewriting the same inverted barrels.
type Engine struct {
	mu          sync.RWMutex
	lex         *lexicon.Lexicon
	stamp       fileStamp
	generation  uint64
	lexiconPath string
	invertedDir string
	perTerm     int
	logger      *slog.Logger
}

type Option func(*Engine)

// WithPostingsPerTerm overrides DefaultPostingsPerTerm.
func WithPostingsPerTerm(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perTerm = n
		}
	}
}

// Open loads the lexicon at lexiconPath and serves postings from
// invertedDir.
func Open(lexiconPath, invertedDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		lexiconPath: lexiconPath,
		invertedDir: invertedDir,
		perTerm:     DefaultPostingsPerTerm,
		logger:      logger.WithComponent("query-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// fileStamp identifies one version of the lexicon file. A missing file has
// the zero stamp.
type fileStamp struct {
	modTime int64
	size    int64
}

func statLexicon(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileStamp{}, nil
		}
		return fileStamp{}, fmt.Errorf("checking lexicon: %w", err)
	}
	return fileStamp{modTime: info.ModTime().UnixNano(), size: info.Size()}, nil
}

// Reload re-reads the lexicon file.
func (e *Engine) Reload() error {
	stamp, err := statLexicon(e.lexiconPath)
	if err != nil {
		return err
	}
	lex, err := lexicon.Load(e.lexiconPath)
	if err != nil {
		return fmt.Errorf("reloading lexicon: %w", err)
	}
	e.mu.Lock()
	e.lex = lex
	e.stamp = stamp
	e.generation++
	e.mu.Unlock()
	e.logger.Info("lexicon loaded", "words", lex.Len())
	return nil
}

// Generation counts snapshot loads, including those triggered by Search.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Stale reports whether the lexicon file changed since the snapshot was
// loaded.
func (e *Engine) Stale() (bool, error) {
	stamp, err := statLexicon(e.lexiconPath)
	if err != nil {
		return false, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return stamp != e.stamp, nil
}

// Refresh reloads the snapshot if the lexicon file changed and reports
// whether it did.
func (e *Engine) Refresh() (bool, error) {
	stale, err := e.Stale()
	if err != nil || !stale {
		return false, err
	}
	return true, e.Reload()
}

// Words returns the vocabulary size of the current snapshot.
func (e *Engine) Words() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lex.Len()
}

// Resolve maps stems to terms, in order. Unknown stems and stems whose
// postings were never merged are dropped.
func (e *Engine) Resolve(stems []string) []Term {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return resolve(e.lex, stems)
}

func resolve(lex *lexicon.Lexicon, stems []string) []Term {
	terms := make([]Term, 0, len(stems))
	for _, s := range stems {
		entry, ok := lex.Lookup(s)
		if !ok {
			continue
		}
		loc, ok := entry.Location()
		if !ok {
			continue
		}
		terms = append(terms, Term{Stem: s, WordID: entry.ID, Location: loc})
	}
	return terms
}

// Search ranks the documents matching stems. An empty or fully unknown
// query yields an empty result. A missing or unreadable inverted barrel for
// a resolved stem is an error.
func (e *Engine) Search(ctx context.Context, stems []string) ([]ranker.ScoredDoc, error) {
	if _, err := e.Refresh(); err != nil {
		return nil, err
	}
	terms := e.Resolve(stems)
	if len(terms) == 0 {
		return []ranker.ScoredDoc{}, nil
	}

	readers := make(map[int]*barrel.Reader)
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	scorer := ranker.NewScorer()
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok := readers[t.Location.Barrel]
		if !ok {
			var err error
			r, err = barrel.OpenReader(barrel.InvertedPath(e.invertedDir, t.Location.Barrel))
			if err != nil {
				return nil, fmt.Errorf("term %q: %w", t.Stem, err)
			}
			readers[t.Location.Barrel] = r
		}
		postings, err := r.PostingsAt(t.Location.Offset, t.WordID, e.perTerm)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", t.Stem, err)
		}
		scorer.Add(postings)
		e.logger.Debug("term scanned",
			"stem", t.Stem,
			"word_id", t.WordID,
			"location", t.Location.String(),
			"postings", len(postings),
		)
	}
	return scorer.Ranked(), nil
}
