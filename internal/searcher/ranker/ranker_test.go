package ranker

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/barrel"
)

func posting(doc, word uint32, title int, positions ...int) barrel.Posting {
	return barrel.Posting{
		Key: barrel.Key{Doc: doc, Word: word},
		Hit: barrel.Hit{
			Title:   barrel.TitleHits{Flag: 1, Count: title},
			Content: barrel.ContentHits{Flag: 0, Count: len(positions), Positions: positions},
		},
	}
}

func TestTitleWeighting(t *testing.T) {
	got := Rank([][]barrel.Posting{{posting(1, 0, 1, 4)}})
	if len(got) != 1 || got[0].Score != 6 {
		t.Errorf("Rank = %+v, want score 6", got)
	}
}

func TestProximityBonus(t *testing.T) {
	fish := posting(7, 0, 0, 2, 5, 9)
	lake := posting(7, 1, 0, 3, 5, 20)
	got := Rank([][]barrel.Posting{{fish}, {lake}})
	// base 3 + 3, proximity 10 + 10 + 4
	if len(got) != 1 || got[0].Score != 30 {
		t.Errorf("Rank = %+v, want score 30", got)
	}
	if p := Proximity([]int{2, 5, 9}, []int{3, 5, 20}); p != 24 {
		t.Errorf("Proximity = %d, want 24", p)
	}
}

func TestProximityTiers(t *testing.T) {
	tests := []struct {
		a, b []int
		want int
	}{
		{[]int{1}, []int{2}, 10},
		{[]int{1}, []int{11}, 8},
		{[]int{1}, []int{101}, 4},
		{[]int{1}, []int{102}, 2},
		{[]int{1, 2, 3}, []int{1}, 10},
		{nil, []int{1}, 0},
	}
	for _, tt := range tests {
		if got := Proximity(tt.a, tt.b); got != tt.want {
			t.Errorf("Proximity(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProximityAgainstEveryEarlierTerm(t *testing.T) {
	got := Rank([][]barrel.Posting{
		{posting(1, 0, 0, 10)},
		{posting(1, 1, 0, 11)},
		{posting(1, 2, 0, 12)},
	})
	// base 3; term 2 vs term 1: +10; term 3 vs term 1: +8, vs term 2: +10
	if got[0].Score != 31 {
		t.Errorf("score = %d, want 31", got[0].Score)
	}
}

func TestTitleOnlyFirstPostingGatesProximity(t *testing.T) {
	got := Rank([][]barrel.Posting{
		{posting(1, 0, 1)},
		{posting(1, 1, 0, 3)},
		{posting(1, 2, 0, 3)},
	})
	// 5 + 1 + 1, no proximity
	if got[0].Score != 7 {
		t.Errorf("score = %d, want 7", got[0].Score)
	}
}

func TestTitleOnlyLaterPostingSkipsProximity(t *testing.T) {
	got := Rank([][]barrel.Posting{
		{posting(1, 0, 0, 3)},
		{posting(1, 1, 2)},
		{posting(1, 2, 0, 4)},
	})
	// 1 + 10 + 1, then +10 against the first term only
	if got[0].Score != 22 {
		t.Errorf("score = %d, want 22", got[0].Score)
	}
}

func TestRankedOrder(t *testing.T) {
	got := Rank([][]barrel.Posting{
		{posting(1, 0, 0, 1), posting(2, 0, 1), posting(3, 0, 0, 1)},
	})
	want := []ScoredDoc{{2, 5}, {1, 1}, {3, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %+v, want %+v", got, want)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("Rank(nil) = %+v", got)
	}
}
