// Package source discovers and decodes the batch files the indexer
// consumes. A batch file is a JSON array of articles.
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Article is one document of a batch file.
type Article struct {
	ID      ExternalID `json:"id"`
	URL     string     `json:"url"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
}

// ExternalID accepts both JSON strings and numbers; numbers keep their
// literal text so that 42 and "42" fingerprint the same.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("article id must be a string or number: %s", data)
	}
	*id = ExternalID(n.String())
	return nil
}

// Batch names one batch file.
type Batch struct {
	Name string
	Path string
}
