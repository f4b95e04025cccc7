package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestListSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", "[]")
	writeFile(t, dir, "a.json", "[]")
	writeFile(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatal(err)
	}

	batches, err := List(dir, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(batches) != 2 || batches[0].Name != "a.json" || batches[1].Name != "b.json" {
		t.Errorf("List = %+v", batches)
	}
}

func TestListMissingDir(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.json", `[
		{"id": 42, "url": "https://a", "title": "Fish", "content": "lake"},
		{"id": "abc", "url": "https://b", "title": "", "content": ""}
	]`)
	articles, err := Load(Batch{Name: "batch.json", Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles", len(articles))
	}
	if articles[0].ID != "42" || articles[1].ID != "abc" {
		t.Errorf("ids = %q, %q", articles[0].ID, articles[1].ID)
	}
}

func TestLoadFaults(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"malformed", `[{"id": 1,`, false},
		{"not array", `{"id": 1}`, false},
		{"missing url", `[{"id": 1, "title": "t"}]`, true},
		{"missing id", `[{"url": "https://x"}]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "x.json", tt.body)
			_, err := Load(Batch{Name: "x.json", Path: path})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, apperrors.ErrInvalidInput); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidInput) = %v, want %v (%v)", got, tt.invalid, err)
			}
			var verr *ValidationError
			if tt.invalid && !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}
