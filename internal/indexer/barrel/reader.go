package barrel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadAll loads every posting of a barrel file in file order. A missing file
// is reported with an error wrapping fs.ErrNotExist.
func ReadAll(path string) ([]Posting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening barrel: %w", err)
	}
	defer f.Close()

	var postings []Posting
	br := bufio.NewReaderSize(f, 64*1024)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			p, perr := ParseLine(line)
			if perr != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, lineNo, perr)
			}
			postings = append(postings, p)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return postings, nil
			}
			return nil, fmt.Errorf("reading barrel %s: %w", path, err)
		}
	}
}

// Reader serves seek-addressed posting scans over one inverted barrel.
type Reader struct {
	file *os.File
	path string
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening inverted barrel: %w", err)
	}
	return &Reader{file: f, path: path}, nil
}

// PostingsAt seeks to offset and returns consecutive postings while their
// word id equals wordID, stopping after limit postings.
func (r *Reader) PostingsAt(offset int64, wordID uint32, limit int) ([]Posting, error) {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking %s to %d: %w", r.path, offset, err)
	}
	br := bufio.NewReader(r.file)
	postings := make([]Posting, 0, limit)
	for len(postings) < limit {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			p, perr := ParseLine(line)
			if perr != nil {
				return nil, fmt.Errorf("%s at offset %d: %w", r.path, offset, perr)
			}
			if p.Word != wordID {
				break
			}
			postings = append(postings, p)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", r.path, err)
		}
	}
	return postings, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
