// Package ranker scores documents from the postings of the query terms:
// title occurrences count five times as much as content occurrences, and
// documents matching several terms earn a bonus based on how close the
// terms' content positions are.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
)

// TitleWeight scales title occurrences relative to content occurrences.
const TitleWeight = 5

type ScoredDoc struct {
	Fingerprint uint32 `json:"fingerprint"`
	Score       int    `json:"score"`
}

type docState struct {
	score int
	// lists holds the content positions of every earlier term that had
	// content hits in this document.
	lists [][]int
	// gated is set when the document's first posting had no content hits;
	// such a document never earns a proximity bonus.
	gated bool
}

// Scorer accumulates scores term by term. The zero value is not usable; use
// NewScorer.
type Scorer struct {
	docs  map[uint32]*docState
	order []uint32
}

func NewScorer() *Scorer {
	return &Scorer{docs: make(map[uint32]*docState)}
}

// BaseScore is the contribution of one posting before any proximity bonus.
func BaseScore(h barrel.Hit) int {
	return h.Title.Count*TitleWeight + h.Content.Count
}

// Add folds one term's postings into the scores, in the order given.
func (s *Scorer) Add(postings []barrel.Posting) {
	for _, p := range postings {
		s.add(p)
	}
}

func (s *Scorer) add(p barrel.Posting) {
	positions := p.Content.Positions
	hasContent := p.Content.Count > 0

	st, seen := s.docs[p.Doc]
	if !seen {
		st = &docState{score: BaseScore(p.Hit), gated: !hasContent}
		if hasContent {
			st.lists = [][]int{positions}
		}
		s.docs[p.Doc] = st
		s.order = append(s.order, p.Doc)
		return
	}

	st.score += BaseScore(p.Hit)
	if !hasContent || st.gated {
		return
	}
	for _, prev := range st.lists {
		st.score += Proximity(prev, positions)
	}
	st.lists = append(st.lists, positions)
}

// Proximity compares two position lists index by index over their common
// length and sums a bonus per pair: distance 0-1 earns 10, up to 10 earns 8,
// up to 100 earns 4, anything further 2.
func Proximity(a, b []int) int {
	n := min(len(a), len(b))
	bonus := 0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		switch {
		case d <= 1:
			bonus += 10
		case d <= 10:
			bonus += 8
		case d <= 100:
			bonus += 4
		default:
			bonus += 2
		}
	}
	return bonus
}

// Len returns the number of scored documents.
func (s *Scorer) Len() int {
	return len(s.order)
}

// Ranked returns every scored document by descending score. Equal scores
// keep the order in which documents were first seen.
func (s *Scorer) Ranked() []ScoredDoc {
	out := make([]ScoredDoc, 0, len(s.order))
	for _, fp := range s.order {
		out = append(out, ScoredDoc{Fingerprint: fp, Score: s.docs[fp].score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Rank scores the postings of each term in query order.
func Rank(perTerm [][]barrel.Posting) []ScoredDoc {
	s := NewScorer()
	for _, postings := range perTerm {
		s.Add(postings)
	}
	return s.Ranked()
}
