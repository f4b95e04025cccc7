package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPattern matches batch files.
const DefaultPattern = "*.json"

// List returns the batch files in dir matching pattern, in lexical order.
func List(dir, pattern string) ([]Batch, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading batch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch source %s is not a directory", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("matching batch files: %w", err)
	}
	sort.Strings(matches)
	batches := make([]Batch, 0, len(matches))
	for _, path := range matches {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		batches = append(batches, Batch{Name: filepath.Base(path), Path: path})
	}
	return batches, nil
}

// Load reads and validates every article of batch b. Any invalid article
// fails the whole batch.
func Load(b Batch) ([]Article, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("reading batch %s: %w", b.Name, err)
	}
	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", b.Name, err)
	}
	for i := range articles {
		if err := ValidateArticle(i, &articles[i]); err != nil {
			return nil, fmt.Errorf("batch %s: %w", b.Name, err)
		}
	}
	return articles, nil
}
