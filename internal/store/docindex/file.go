package docindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

// FileRegistry keeps the registry in a single JSON object file mapping the
// decimal fingerprint to the URL. The file is read fully on open and
// rewritten fully on Save.
type FileRegistry struct {
	*Entries
	path string
}

// OpenFile loads the registry at path. A missing file yields an empty
// registry.
func OpenFile(path string) (*FileRegistry, error) {
	r := &FileRegistry{Entries: NewEntries(), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("reading document index: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Corruptf("document index %s: %v", path, err)
	}
	for k, url := range raw {
		fp, err := ParseKey(k)
		if err != nil {
			return nil, apperrors.Corruptf("document index %s: bad fingerprint %q", path, k)
		}
		r.urls[fp] = url
	}
	return r, nil
}

func (r *FileRegistry) Save(_ context.Context) error {
	raw := make(map[string]string, len(r.urls))
	for fp, url := range r.urls {
		raw[Key(fp)] = url
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding document index: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("writing document index: %w", err)
	}
	return nil
}

func (r *FileRegistry) Close() error { return nil }
