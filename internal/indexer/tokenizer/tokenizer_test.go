package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"only punctuation and digits", "123 -- 4.5!", []string{}},
		{"only stop words", "The and of it", []string{}},
		{"stems in order", "Fishing cats running", []string{"fish", "cat", "run"}},
		{"duplicates kept", "fish fish", []string{"fish", "fish"}},
		{"non letters split words", "lake2fish,cat", []string{"lake", "fish", "cat"}},
		{"apostrophes split", "don't fish", []string{"fish"}},
		{"non ascii is a separator", "café lake", []string{"caf", "lake"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeIsDeterministic(t *testing.T) {
	text := "Distributed indexing of articles with inverted barrels"
	first := Tokenize(text)
	for i := 0; i < 5; i++ {
		if got := Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "and", "which", "t"} {
		if !IsStopWord(w) {
			t.Errorf("%q should be a stop word", w)
		}
	}
	for _, w := range []string{"fish", "lake", "barrel"} {
		if IsStopWord(w) {
			t.Errorf("%q should not be a stop word", w)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "Search engines build an inverted index from a forward index, sorting postings " +
		"by word id into barrels so that queries can seek straight to a term's postings."
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Tokenize(text)
	}
}
