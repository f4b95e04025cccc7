// Package lexicon implements the Lexicon Store: the stem -> (word id, posting
// location) directory shared by the indexer, the merger and the searcher.
//
// Word ids are assigned densely from 0 in first-seen order and entries are
// kept in that order, so the entry at insertion position k always has id k.
// The merger relies on this to find the entry for a word id without a search.
//
// A Lexicon is not safe for concurrent use; each pipeline stage owns the
// instance it loaded for the duration of one operation.
package lexicon

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

// Unset marks an entry whose postings have not been merged into an inverted
// barrel yet.
const Unset int64 = -1

// Entry is one lexicon record.
type Entry struct {
	Stem   string
	ID     uint32
	Offset int64
}

// Location returns where the word's postings start, or false when the word
// has never been merged.
func (e Entry) Location() (barrel.Location, bool) {
	if e.Offset == Unset {
		return barrel.Location{}, false
	}
	return barrel.Location{Barrel: barrel.Number(e.ID), Offset: e.Offset}, true
}

type Lexicon struct {
	entries []Entry
	ids     map[string]uint32
}

func New() *Lexicon {
	return &Lexicon{ids: make(map[string]uint32)}
}

// Len returns the number of assigned word ids, which is also the next id to
// assign.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// NextID returns the id the next new stem will receive.
func (l *Lexicon) NextID() uint32 {
	return uint32(len(l.entries))
}

// Lookup returns the entry for stem.
func (l *Lexicon) Lookup(stem string) (Entry, bool) {
	id, ok := l.ids[stem]
	if !ok {
		return Entry{}, false
	}
	return l.entries[id], true
}

// Allocate returns the word id of stem, assigning the next id when the stem
// is new. It fails with ErrCapacityExceeded once every barrel slot is taken.
func (l *Lexicon) Allocate(stem string) (uint32, error) {
	if id, ok := l.ids[stem]; ok {
		return id, nil
	}
	if len(l.entries) >= barrel.Capacity {
		return 0, fmt.Errorf("%w: cannot assign id to %q, all %d ids in use",
			apperrors.ErrCapacityExceeded, stem, barrel.Capacity)
	}
	id := uint32(len(l.entries))
	l.entries = append(l.entries, Entry{Stem: stem, ID: id, Offset: Unset})
	l.ids[stem] = id
	return id, nil
}

// At returns the entry at insertion position pos (0-based, counter excluded).
func (l *Lexicon) At(pos int) (Entry, bool) {
	if pos < 0 || pos >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[pos], true
}

// SetLocation records where the postings of wordID start. The entry is
// addressed by insertion position, which equals the word id.
func (l *Lexicon) SetLocation(wordID uint32, loc barrel.Location) error {
	if int(wordID) >= len(l.entries) {
		return apperrors.Corruptf("word id %d not in lexicon of %d words", wordID, len(l.entries))
	}
	if want := barrel.Number(wordID); loc.Barrel != want {
		return fmt.Errorf("word id %d belongs to barrel %d, not %d", wordID, want, loc.Barrel)
	}
	if loc.Offset < 0 {
		return fmt.Errorf("negative offset %d for word id %d", loc.Offset, wordID)
	}
	l.entries[wordID].Offset = loc.Offset
	return nil
}

// Each calls fn for every entry in insertion order until fn returns false.
func (l *Lexicon) Each(fn func(Entry) bool) {
	for _, e := range l.entries {
		if !fn(e) {
			return
		}
	}
}
