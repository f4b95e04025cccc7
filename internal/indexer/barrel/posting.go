package barrel

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

// Key identifies a posting: a document fingerprint and a word id.
type Key struct {
	Doc  uint32
	Word uint32
}

// TitleHits records occurrences of a word in a document title. Flag is set
// when the record is created and never read by scoring.
type TitleHits struct {
	Flag  int
	Count int
}

// ContentHits records occurrences of a word in a document body, with the
// 1-based token positions in scan order.
type ContentHits struct {
	Flag      int
	Count     int
	Positions []int
}

// Hit is the hit record of one (document, word) pair.
type Hit struct {
	Title   TitleHits
	Content ContentHits
}

// Posting is one line of a forward or inverted barrel.
type Posting struct {
	Key
	Hit
}

// AppendLine appends the line encoding of p, including the trailing newline:
//
//	[[doc, word], [[title_flag, title_count], [content_flag, content_count, pos...]]]
func AppendLine(dst []byte, p Posting) []byte {
	dst = append(dst, "[["...)
	dst = strconv.AppendUint(dst, uint64(p.Doc), 10)
	dst = append(dst, ", "...)
	dst = strconv.AppendUint(dst, uint64(p.Word), 10)
	dst = append(dst, "], [["...)
	dst = strconv.AppendInt(dst, int64(p.Title.Flag), 10)
	dst = append(dst, ", "...)
	dst = strconv.AppendInt(dst, int64(p.Title.Count), 10)
	dst = append(dst, "], ["...)
	dst = strconv.AppendInt(dst, int64(p.Content.Flag), 10)
	dst = append(dst, ", "...)
	dst = strconv.AppendInt(dst, int64(p.Content.Count), 10)
	for _, pos := range p.Content.Positions {
		dst = append(dst, ", "...)
		dst = strconv.AppendInt(dst, int64(pos), 10)
	}
	dst = append(dst, "]]]\n"...)
	return dst
}

// ParseLine decodes one barrel line. Surrounding whitespace, including the
// newline, is ignored.
func ParseLine(line []byte) (Posting, error) {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Posting{}, apperrors.Corruptf("posting line: %v", err)
	}
	var key [2]uint32
	if err := json.Unmarshal(raw[0], &key); err != nil {
		return Posting{}, apperrors.Corruptf("posting key: %v", err)
	}
	var hits [2][]int
	if err := json.Unmarshal(raw[1], &hits); err != nil {
		return Posting{}, apperrors.Corruptf("posting hits: %v", err)
	}
	title, content := hits[0], hits[1]
	if len(title) != 2 || len(content) < 2 {
		return Posting{}, apperrors.Corruptf("posting hits for (%d, %d): title has %d fields, content has %d",
			key[0], key[1], len(title), len(content))
	}
	p := Posting{
		Key: Key{Doc: key[0], Word: key[1]},
		Hit: Hit{
			Title:   TitleHits{Flag: title[0], Count: title[1]},
			Content: ContentHits{Flag: content[0], Count: content[1]},
		},
	}
	if len(content) > 2 {
		p.Content.Positions = append([]int(nil), content[2:]...)
	}
	return p, nil
}

func (p Posting) String() string {
	line := AppendLine(nil, p)
	return string(line[:len(line)-1])
}

// MarshalJSON lets postings be embedded in API payloads in their line form.
func (p Posting) MarshalJSON() ([]byte, error) {
	line := AppendLine(nil, p)
	return line[:len(line)-1], nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Posting) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLine(data)
	if err != nil {
		return fmt.Errorf("unmarshaling posting: %w", err)
	}
	*p = parsed
	return nil
}
