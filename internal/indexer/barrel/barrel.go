// Package barrel defines the on-disk layout shared by the indexer, merger and
// searcher: the word-id range owned by each of the fixed barrels, the file
// names of forward and inverted barrels, and the one-posting-per-line record
// encoding used by both.
package barrel

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Width is the number of consecutive word ids owned by one barrel.
	Width = 533
	// Count is the number of barrels.
	Count = 300
	// Capacity is the largest vocabulary the barrels can address.
	Capacity = Width * Count

	forwardPrefix  = "forward_barrel_"
	invertedPrefix = "inverted_barrel_"
	fileSuffix     = ".txt"
)

// Number returns the 1-based number of the barrel owning wordID.
func Number(wordID uint32) int {
	return int(wordID/Width) + 1
}

// Slot returns the bucket of wordID inside its barrel.
func Slot(wordID uint32) int {
	return int(wordID % Width)
}

// Location addresses the first posting of a word: a byte offset inside a
// specific inverted barrel.
type Location struct {
	Barrel int
	Offset int64
}

func (l Location) String() string {
	return fmt.Sprintf("%s@%d", InvertedName(l.Barrel), l.Offset)
}

func ForwardName(n int) string {
	return forwardPrefix + strconv.Itoa(n) + fileSuffix
}

func InvertedName(n int) string {
	return invertedPrefix + strconv.Itoa(n) + fileSuffix
}

func ForwardPath(dir string, n int) string {
	return filepath.Join(dir, ForwardName(n))
}

func InvertedPath(dir string, n int) string {
	return filepath.Join(dir, InvertedName(n))
}

// ParseForwardName extracts the barrel number from a forward barrel file
// name. It reports false for names that are not forward barrels or whose
// number is outside 1..Count.
func ParseForwardName(name string) (int, bool) {
	return parseName(name, forwardPrefix)
}

// ParseInvertedName is ParseForwardName for inverted barrels.
func ParseInvertedName(name string) (int, bool) {
	return parseName(name, invertedPrefix)
}

func parseName(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix)
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > Count {
		return 0, false
	}
	return n, true
}
