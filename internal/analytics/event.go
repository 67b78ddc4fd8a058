package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
)

// NewLookupEvent summarizes a discovery result.
func NewLookupEvent(typ EventType, res discovery.Result, cacheHit bool, latency time.Duration, requestID string) LookupEvent {
	ev := LookupEvent{
		Type:      typ,
		Word:      res.Word,
		RootHint:  res.RootHint,
		Found:     res.Found(),
		Indexed:   len(res.Indexed),
		Partial:   len(res.Partial),
		Failed:    res.Failed,
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
	for _, m := range res.Roots {
		switch m.Tier {
		case discovery.TierExact:
			ev.Exact++
		case discovery.TierRoot:
			ev.Root++
		case discovery.TierFormat:
			ev.Format++
		}
	}
	return ev
}
