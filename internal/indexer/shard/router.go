// Package shard routes forward-index fragments to the 300 forward barrel
// files. Each barrel owns a contiguous band of word ids; a fragment is only
// ever appended to the barrel that owns its words.
package shard

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/logger"
)

// Router appends fragments to the forward barrels under one directory.
type Router struct {
	dir    string
	logger *slog.Logger
}

// NewRouter creates the forward barrel directory and every barrel file that
// does not exist yet. Existing files are left untouched.
func NewRouter(dir string) (*Router, error) {
	r := &Router{
		dir:    dir,
		logger: logger.WithComponent("forward-router"),
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating forward barrel directory: %w", err)
	}
	created := 0
	for n := 1; n <= barrel.Count; n++ {
		f, err := os.OpenFile(r.Path(n), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, fmt.Errorf("creating forward barrel %d: %w", n, err)
		}
		f.Close()
		created++
	}
	if created > 0 {
		r.logger.Info("forward barrels created", "dir", dir, "created", created)
	}
	return r, nil
}

// Path returns the forward barrel file of barrel n.
func (r *Router) Path(n int) string {
	return barrel.ForwardPath(r.dir, n)
}

// Dir returns the forward barrel directory.
func (r *Router) Dir() string {
	return r.dir
}

// Route returns the forward barrel file owning wordID.
func (r *Router) Route(wordID uint32) string {
	return r.Path(barrel.Number(wordID))
}

// Pending returns the numbers of the forward barrels still holding lines
// that no merge has folded in, ascending.
func (r *Router) Pending() ([]int, error) {
	var pending []int
	for n := 1; n <= barrel.Count; n++ {
		info, err := os.Stat(r.Path(n))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("checking forward barrel %d: %w", n, err)
		}
		if info.Size() > 0 {
			pending = append(pending, n)
		}
	}
	return pending, nil
}

// Flush appends every non-empty fragment of set to its forward barrel and
// returns the number of posting lines written. Lines are appended, never
// merged with earlier ones. On error every barrel touched by this flush is
// truncated back to its previous length, so retrying the batch does not
// duplicate lines.
func (r *Router) Flush(set *index.Set) (int, error) {
	type mark struct {
		n    int
		size int64
	}
	var touched []mark
	written := 0
	err := set.Each(func(n int, f *index.Fragment) error {
		size, err := fileSize(r.Path(n))
		if err != nil {
			return fmt.Errorf("flushing barrel %d: %w", n, err)
		}
		touched = append(touched, mark{n: n, size: size})
		if err := barrel.AppendForward(r.Path(n), f.Postings()); err != nil {
			return fmt.Errorf("flushing barrel %d: %w", n, err)
		}
		written += f.Len()
		return nil
	})
	if err == nil {
		return written, nil
	}
	r.logger.Error("forward barrel flush failed, rolling back", "barrels", len(touched), "error", err)
	for _, m := range touched {
		if terr := os.Truncate(r.Path(m.n), m.size); terr != nil && !os.IsNotExist(terr) {
			r.logger.Error("forward barrel rollback failed", "barrel", m.n, "error", terr)
		}
	}
	return 0, err
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}
