// Package analytics collects search and indexing events, ships them over
// Kafka and aggregates them into the stats served at /api/v1/analytics.
package analytics

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventSearch        EventType = "search"
	EventIndexComplete EventType = "index_complete"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Stems     []string  `json:"stems"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent is published after a pipeline run that changed the index.
type IndexEvent struct {
	Type          EventType `json:"type"`
	TraceID       string    `json:"trace_id"`
	Added         int       `json:"added"`
	Words         int       `json:"words"`
	Batches       int       `json:"batches"`
	FailedBatches int       `json:"failed_batches"`
	BarrelsMerged int       `json:"barrels_merged"`
	Postings      int       `json:"postings"`
	LatencyMs     int64     `json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// Decode reads an event from its JSON form, dispatching on the type field.
// Unknown types yield nil.
func Decode(data []byte) (any, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	switch envelope.Type {
	case EventSearch:
		var e SearchEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventIndexComplete:
		var e IndexEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, nil
}
