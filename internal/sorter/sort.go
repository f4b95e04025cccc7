package sorter

import "github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"

// Buckets holds one barrel's postings grouped by word slot.
type Buckets [barrel.Width][]barrel.Posting

// BucketSort distributes postings of a single barrel into buckets keyed by
// word id modulo the barrel width. Postings keep their relative order inside
// a bucket.
func BucketSort(postings []barrel.Posting) *Buckets {
	var b Buckets
	for _, p := range postings {
		slot := barrel.Slot(p.Word)
		b[slot] = append(b[slot], p)
	}
	return &b
}
