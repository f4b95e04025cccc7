package index

import "github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"

// Set is the forward index of one batch: a fragment per barrel, created
// lazily.
type Set struct {
	fragments [barrel.Count]*Fragment
	docCount  int
	size      int
}

func NewSet() *Set {
	return &Set{}
}

// AddDocument records the title word ids and then the content word ids of
// one document, in scan order. Content positions are 1-based.
func (s *Set) AddDocument(doc uint32, title, content []uint32) {
	for _, w := range title {
		s.RecordTitle(doc, w)
	}
	for i, w := range content {
		s.RecordContent(doc, w, i+1)
	}
	s.docCount++
}

func (s *Set) RecordTitle(doc, word uint32) {
	f := s.fragment(word)
	before := f.Len()
	f.RecordTitle(barrel.Key{Doc: doc, Word: word})
	s.size += f.Len() - before
}

func (s *Set) RecordContent(doc, word uint32, pos int) {
	f := s.fragment(word)
	before := f.Len()
	f.RecordContent(barrel.Key{Doc: doc, Word: word}, pos)
	s.size += f.Len() - before
}

func (s *Set) fragment(word uint32) *Fragment {
	i := barrel.Number(word) - 1
	if s.fragments[i] == nil {
		s.fragments[i] = NewFragment()
	}
	return s.fragments[i]
}

// Fragment returns the fragment of barrel n (1-based), or nil when nothing
// was recorded for it.
func (s *Set) Fragment(n int) *Fragment {
	if n < 1 || n > barrel.Count {
		return nil
	}
	return s.fragments[n-1]
}

// Each calls fn for every non-empty fragment in barrel order.
func (s *Set) Each(fn func(n int, f *Fragment) error) error {
	for i, f := range s.fragments {
		if f == nil || f.Len() == 0 {
			continue
		}
		if err := fn(i+1, f); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of hit records across all fragments.
func (s *Set) Size() int {
	return s.size
}

func (s *Set) DocCount() int {
	return s.docCount
}

// Reset discards every fragment.
func (s *Set) Reset() {
	s.fragments = [barrel.Count]*Fragment{}
	s.docCount = 0
	s.size = 0
}
