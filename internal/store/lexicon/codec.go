package lexicon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

// counterKey is the reserved first key of the persisted object; its value
// is [next_word_id, 0].
const counterKey = "word_count"

// Load reads the lexicon file at path. A missing file yields an empty
// lexicon.
func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("opening lexicon: %w", err)
	}
	defer f.Close()
	lex, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("loading lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Decode parses a persisted lexicon, keeping the object's key order as the
// insertion order.
func Decode(r io.Reader) (*Lexicon, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.Corruptf("lexicon: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, apperrors.Corruptf("lexicon: expected object, got %v", tok)
	}

	lex := New()
	counter := int64(-1)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, apperrors.Corruptf("lexicon key: %v", err)
		}
		stem, ok := tok.(string)
		if !ok {
			return nil, apperrors.Corruptf("lexicon: non-string key %v", tok)
		}
		var value []*int64
		if err := dec.Decode(&value); err != nil {
			return nil, apperrors.Corruptf("lexicon value for %q: %v", stem, err)
		}
		if len(value) != 2 || value[0] == nil {
			return nil, apperrors.Corruptf("lexicon value for %q: want [id, offset]", stem)
		}

		if stem == counterKey {
			counter = *value[0]
			continue
		}
		if _, dup := lex.ids[stem]; dup {
			return nil, apperrors.Corruptf("lexicon: duplicate stem %q", stem)
		}
		id := *value[0]
		if id != int64(len(lex.entries)) {
			return nil, apperrors.Corruptf("lexicon: stem %q at position %d has id %d",
				stem, len(lex.entries), id)
		}
		offset := Unset
		if value[1] != nil {
			offset = *value[1]
		}
		lex.entries = append(lex.entries, Entry{Stem: stem, ID: uint32(id), Offset: offset})
		lex.ids[stem] = uint32(id)
	}
	if _, err := dec.Token(); err != nil {
		return nil, apperrors.Corruptf("lexicon: %v", err)
	}
	if counter >= 0 && counter != int64(len(lex.entries)) {
		return nil, apperrors.Corruptf("lexicon: counter %d does not match %d entries",
			counter, len(lex.entries))
	}
	return lex, nil
}

// Save rewrites the lexicon file at path in full. The new content is written
// to a temporary file in the same directory and renamed over path, so
// readers see either the old or the new lexicon.
func (l *Lexicon) Save(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".lexicon-*")
	if err != nil {
		return fmt.Errorf("creating lexicon file: %w", err)
	}
	tmp := f.Name()
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}
	w := bufio.NewWriter(f)
	if err := l.Encode(w); err != nil {
		return fail(fmt.Errorf("writing lexicon %s: %w", path, err))
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing lexicon %s: %w", path, err))
	}
	if err := f.Chmod(0644); err != nil {
		return fail(fmt.Errorf("setting lexicon mode: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing lexicon %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing lexicon %s: %w", path, err)
	}
	return nil
}

// Encode writes the lexicon as one JSON object: the counter first, then every
// stem in insertion order. Unset offsets are written as null.
func (l *Lexicon) Encode(w io.Writer) error {
	buf := make([]byte, 0, 64*1024)
	buf = append(buf, `{"`+counterKey+`": [`...)
	buf = strconv.AppendInt(buf, int64(len(l.entries)), 10)
	buf = append(buf, ", 0]"...)
	for _, e := range l.entries {
		key, err := json.Marshal(e.Stem)
		if err != nil {
			return fmt.Errorf("encoding stem %q: %w", e.Stem, err)
		}
		buf = append(buf, ", "...)
		buf = append(buf, key...)
		buf = append(buf, ": ["...)
		buf = strconv.AppendUint(buf, uint64(e.ID), 10)
		buf = append(buf, ", "...)
		if e.Offset == Unset {
			buf = append(buf, "null"...)
		} else {
			buf = strconv.AppendInt(buf, e.Offset, 10)
		}
		buf = append(buf, ']')
		if len(buf) >= 32*1024 {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	buf = append(buf, '}')
	_, err := w.Write(buf)
	return err
}
