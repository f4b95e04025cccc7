package barrel

import (
	"bufio"
	"fmt"
	"os"
)

// AppendForward appends postings to the forward barrel at path, creating the
// file if needed. Existing lines are never rewritten.
func AppendForward(path string, postings []Posting) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening forward barrel: %w", err)
	}
	w := bufio.NewWriter(f)
	var line []byte
	for _, p := range postings {
		line = AppendLine(line[:0], p)
		if _, err := w.Write(line); err != nil {
			f.Close()
			return fmt.Errorf("appending to forward barrel %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing forward barrel %s: %w", path, err)
	}
	return f.Close()
}

// InvertedWriter rewrites an inverted barrel from scratch and tracks the
// byte offset of the next line so callers can record where each word's
// postings begin.
type InvertedWriter struct {
	f      *os.File
	w      *bufio.Writer
	path   string
	offset int64
	lines  int
	buf    []byte
}

// CreateInverted truncates (or creates) the inverted barrel at path.
func CreateInverted(path string) (*InvertedWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating inverted barrel: %w", err)
	}
	return &InvertedWriter{
		f:    f,
		w:    bufio.NewWriterSize(f, 64*1024),
		path: path,
	}, nil
}

// Offset returns the byte offset at which the next Write will start.
func (iw *InvertedWriter) Offset() int64 {
	return iw.offset
}

// Lines returns the number of postings written so far.
func (iw *InvertedWriter) Lines() int {
	return iw.lines
}

func (iw *InvertedWriter) Write(p Posting) error {
	iw.buf = AppendLine(iw.buf[:0], p)
	n, err := iw.w.Write(iw.buf)
	iw.offset += int64(n)
	if err != nil {
		return fmt.Errorf("writing inverted barrel %s: %w", iw.path, err)
	}
	iw.lines++
	return nil
}

// Close flushes buffered lines, syncs and closes the file.
func (iw *InvertedWriter) Close() error {
	if err := iw.w.Flush(); err != nil {
		iw.f.Close()
		return fmt.Errorf("flushing inverted barrel %s: %w", iw.path, err)
	}
	if err := iw.f.Sync(); err != nil {
		iw.f.Close()
		return fmt.Errorf("syncing inverted barrel %s: %w", iw.path, err)
	}
	return iw.f.Close()
}
