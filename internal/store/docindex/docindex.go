// Package docindex implements the Document Registry: the persisted map from
// a document fingerprint to its source URL. A fingerprint present in the
// registry means the document is already part of the forward index.
package docindex

import (
	"context"
	"hash/crc32"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/config"
)

// Fingerprint returns the 32-bit checksum of an external document id.
// Distinct ids that collide are treated as the same document.
func Fingerprint(externalID string) uint32 {
	return crc32.ChecksumIEEE([]byte(externalID))
}

// Key is the persisted form of a fingerprint.
func Key(fp uint32) string {
	return strconv.FormatUint(uint64(fp), 10)
}

// ParseKey is the inverse of Key.
func ParseKey(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// Registry is implemented by every registry backend. Reads and writes work
// on the in-memory copy loaded at open time; Save persists it.
type Registry interface {
	Contains(fp uint32) bool
	URL(fp uint32) (string, bool)
	Add(fp uint32, url string)
	Len() int
	Save(ctx context.Context) error
	Close() error
}

// Entries is the in-memory map shared by the backends.
type Entries struct {
	urls map[uint32]string
}

func NewEntries() *Entries {
	return &Entries{urls: make(map[uint32]string)}
}

func (e *Entries) Contains(fp uint32) bool {
	_, ok := e.urls[fp]
	return ok
}

func (e *Entries) URL(fp uint32) (string, bool) {
	u, ok := e.urls[fp]
	return u, ok
}

// Add registers fp. An existing entry keeps its URL.
func (e *Entries) Add(fp uint32, url string) {
	if _, ok := e.urls[fp]; ok {
		return
	}
	e.urls[fp] = url
}

func (e *Entries) Len() int {
	return len(e.urls)
}

// Open returns the registry backend selected by cfg.
func Open(ctx context.Context, cfg *config.Config) (Registry, error) {
	switch cfg.Indexer.RegistryBackend {
	case config.RegistryPostgres:
		r, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		r, err := OpenFile(cfg.Store.DocumentIndexPath())
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
