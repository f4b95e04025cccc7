// Package index holds the in-memory forward index built for one batch of
// documents: one fragment per barrel, each mapping (fingerprint, word id) to
// the hit record accumulated while scanning the batch.
package index

import "github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"

// Fragment accumulates the hit records of one barrel for one batch. Records
// are returned in the order their keys were first seen.
type Fragment struct {
	records map[barrel.Key]*barrel.Hit
	order   []barrel.Key
}

func NewFragment() *Fragment {
	return &Fragment{records: make(map[barrel.Key]*barrel.Hit)}
}

// RecordTitle counts one title occurrence of key. A new record starts as
// title (1, 1) and content (0, 0).
func (f *Fragment) RecordTitle(key barrel.Key) {
	if h, ok := f.records[key]; ok {
		h.Title.Count++
		return
	}
	f.insert(key, &barrel.Hit{
		Title:   barrel.TitleHits{Flag: 1, Count: 1},
		Content: barrel.ContentHits{Flag: 0, Count: 0},
	})
}

// RecordContent counts one content occurrence of key at the 1-based
// position pos. A new record starts as title (1, 0) and content (0, 1, pos).
func (f *Fragment) RecordContent(key barrel.Key, pos int) {
	if h, ok := f.records[key]; ok {
		h.Content.Count++
		h.Content.Positions = append(h.Content.Positions, pos)
		return
	}
	f.insert(key, &barrel.Hit{
		Title:   barrel.TitleHits{Flag: 1, Count: 0},
		Content: barrel.ContentHits{Flag: 0, Count: 1, Positions: []int{pos}},
	})
}

func (f *Fragment) insert(key barrel.Key, h *barrel.Hit) {
	f.records[key] = h
	f.order = append(f.order, key)
}

// Hit returns a copy of the record for key.
func (f *Fragment) Hit(key barrel.Key) (barrel.Hit, bool) {
	h, ok := f.records[key]
	if !ok {
		return barrel.Hit{}, false
	}
	return *h, true
}

func (f *Fragment) Len() int {
	return len(f.order)
}

// Postings returns the fragment's records in first-seen order.
func (f *Fragment) Postings() []barrel.Posting {
	out := make([]barrel.Posting, 0, len(f.order))
	for _, k := range f.order {
		out = append(out, barrel.Posting{Key: k, Hit: *f.records[k]})
	}
	return out
}
