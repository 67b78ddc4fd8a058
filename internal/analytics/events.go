// Package analytics records lookup events. The service publishes them to
// Kafka through a batching Collector; an Aggregator consumes the topic (or
// receives events directly when Kafka is off) and serves usage statistics.
package analytics

import "time"

type EventType string

const (
	EventDiscover   EventType = "discover"
	EventLookup     EventType = "lookup"
	EventDefinition EventType = "definition"
)

// LookupEvent describes one word lookup.
type LookupEvent struct {
	Type      EventType `json:"type"`
	Word      string    `json:"word"`
	RootHint  string    `json:"root_hint,omitempty"`
	Found     bool      `json:"found"`
	Indexed   int       `json:"indexed"`
	Exact     int       `json:"exact"`
	Root      int       `json:"root"`
	Format    int       `json:"format"`
	Partial   int       `json:"partial"`
	Failed    []string  `json:"failed,omitempty"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// InvalidateEvent announces that the dictionary data changed and cached
// lookups are stale.
type InvalidateEvent struct {
	Reason    string    `json:"reason"`
	Roots     int       `json:"roots"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker accepts lookup events. Implementations must not block.
type Tracker interface {
	Track(event LookupEvent)
}
