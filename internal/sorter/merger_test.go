package sorter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/store/lexicon"
	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

func posting(doc, word uint32, content int, positions ...int) barrel.Posting {
	return barrel.Posting{
		Key: barrel.Key{Doc: doc, Word: word},
		Hit: barrel.Hit{
			Title:   barrel.TitleHits{Flag: 1, Count: 0},
			Content: barrel.ContentHits{Flag: 0, Count: content, Positions: positions},
		},
	}
}

type fixture struct {
	lex      *lexicon.Lexicon
	lexPath  string
	forward  string
	inverted string
}

func newFixture(t *testing.T, words int) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		lex:      lexicon.New(),
		lexPath:  filepath.Join(root, "lexicon.txt"),
		forward:  filepath.Join(root, "ForwardBarrels"),
		inverted: filepath.Join(root, "InvertedBarrels"),
	}
	for i := 0; i < words; i++ {
		if _, err := f.lex.Allocate(fmt.Sprintf("w%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(f.forward, 0755); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) appendForward(t *testing.T, n int, postings ...barrel.Posting) {
	t.Helper()
	if err := barrel.AppendForward(barrel.ForwardPath(f.forward, n), postings); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) merger() *Merger {
	return NewMerger(f.lex, f.lexPath, f.forward, f.inverted)
}

func (f *fixture) scan(t *testing.T, word uint32, limit int) []barrel.Posting {
	t.Helper()
	e, ok := f.lex.At(int(word))
	if !ok {
		t.Fatalf("word %d not in lexicon", word)
	}
	loc, ok := e.Location()
	if !ok {
		t.Fatalf("word %d has no location", word)
	}
	r, err := barrel.OpenReader(barrel.InvertedPath(f.inverted, loc.Barrel))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	postings, err := r.PostingsAt(loc.Offset, word, limit)
	if err != nil {
		t.Fatal(err)
	}
	return postings
}

func TestBucketSortIsStable(t *testing.T) {
	in := []barrel.Posting{
		posting(1, 540, 1), posting(2, 533, 1), posting(3, 540, 1), posting(4, 533, 1),
	}
	b := BucketSort(in)
	if len(b[0]) != 2 || b[0][0].Doc != 2 || b[0][1].Doc != 4 {
		t.Errorf("slot 0 = %+v", b[0])
	}
	if len(b[7]) != 2 || b[7][0].Doc != 1 || b[7][1].Doc != 3 {
		t.Errorf("slot 7 = %+v", b[7])
	}
}

func TestRebuildRecordsOffsets(t *testing.T) {
	f := newFixture(t, 600)
	f.appendForward(t, 1,
		posting(10, 5, 1, 4),
		posting(11, 2, 2, 1, 3),
		posting(12, 5, 1, 7),
	)
	f.appendForward(t, 2, posting(10, 533, 1, 2))

	res, err := f.merger().Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if res.Barrels != 2 || res.Postings != 4 {
		t.Errorf("result = %+v, want 2 barrels and 4 postings", res)
	}

	if got := f.scan(t, 5, 30); len(got) != 2 || got[0].Doc != 10 || got[1].Doc != 12 {
		t.Errorf("word 5 postings = %+v", got)
	}
	if got := f.scan(t, 2, 30); len(got) != 1 || got[0].Doc != 11 {
		t.Errorf("word 2 postings = %+v", got)
	}
	if got := f.scan(t, 533, 30); len(got) != 1 || got[0].Doc != 10 {
		t.Errorf("word 533 postings = %+v", got)
	}
	e, _ := f.lex.At(2)
	if loc, _ := e.Location(); loc.Offset != 0 {
		t.Errorf("lowest word should start the file, got offset %d", loc.Offset)
	}
	if e, _ := f.lex.At(3); e.Offset != lexicon.Unset {
		t.Errorf("word without postings got offset %d", e.Offset)
	}

	saved, err := lexicon.Load(f.lexPath)
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := saved.At(5); e.Offset == lexicon.Unset {
		t.Error("offsets not persisted")
	}
}

func TestRebuildTruncatesForwardAndIsRepeatable(t *testing.T) {
	f := newFixture(t, 10)
	f.appendForward(t, 1, posting(1, 3, 1, 1), posting(2, 1, 1, 2))
	if _, err := f.merger().Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	fwd, err := os.ReadFile(barrel.ForwardPath(f.forward, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(fwd) != 0 {
		t.Errorf("forward barrel not truncated: %q", fwd)
	}
	invPath := barrel.InvertedPath(f.inverted, 1)
	before, _ := os.ReadFile(invPath)

	res, err := f.merger().Rebuild(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(invPath)
	if !bytes.Equal(before, after) || res.Postings != 0 {
		t.Errorf("second merge without new postings changed the inverted barrel")
	}
}

func TestRebuildAppendsAfterExisting(t *testing.T) {
	f := newFixture(t, 10)
	f.appendForward(t, 1, posting(1, 4, 1, 1))
	if _, err := f.merger().Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.appendForward(t, 1, posting(2, 4, 1, 9), posting(3, 0, 1, 1))
	if _, err := f.merger().Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.scan(t, 4, 30)
	if len(got) != 2 || got[0].Doc != 1 || got[1].Doc != 2 {
		t.Errorf("word 4 postings = %+v, want docs 1 then 2", got)
	}
	all, err := barrel.ReadAll(barrel.InvertedPath(f.inverted, 1))
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Word < all[i-1].Word {
			t.Fatalf("inverted barrel not sorted at line %d", i+1)
		}
	}
}

func TestRebuildRejectsMisplacedWord(t *testing.T) {
	f := newFixture(t, 600)
	f.appendForward(t, 1, posting(1, 550, 1, 1))
	_, err := f.merger().Rebuild(context.Background())
	if !errors.Is(err, apperrors.ErrStoreCorrupt) {
		t.Fatalf("got %v, want ErrStoreCorrupt", err)
	}
	if _, statErr := os.Stat(f.lexPath); statErr != nil {
		t.Error("lexicon should be saved even when a barrel fails")
	}
}

func TestRebuildUnknownWord(t *testing.T) {
	f := newFixture(t, 2)
	f.appendForward(t, 1, posting(1, 7, 1, 1))
	if _, err := f.merger().Rebuild(context.Background()); !errors.Is(err, apperrors.ErrStoreCorrupt) {
		t.Fatalf("got %v, want ErrStoreCorrupt", err)
	}
}

func TestRebuildMissingForwardDir(t *testing.T) {
	f := newFixture(t, 1)
	m := NewMerger(f.lex, f.lexPath, filepath.Join(f.forward, "missing"), f.inverted)
	if _, err := m.Rebuild(context.Background()); err == nil {
		t.Error("expected error")
	}
}
