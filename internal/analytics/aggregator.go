package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

// maxLatencies bounds the latency sample kept for percentiles.
const maxLatencies = 10000

type AggregatedStats struct {
	TotalLookups     int64            `json:"total_lookups"`
	Found            int64            `json:"found"`
	NotFound         int64            `json:"not_found"`
	CacheHits        int64            `json:"cache_hits"`
	ByType           map[string]int64 `json:"by_type"`
	MatchesByTier    map[string]int64 `json:"matches_by_tier"`
	StrategyFailures map[string]int64 `json:"strategy_failures"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TopWords         []WordCount      `json:"top_words"`
	NotFoundWords    []WordCount      `json:"not_found_words"`
	LookupsPerMinute float64          `json:"lookups_per_minute"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Aggregator folds lookup events into running statistics. Words are
// counted by their diacritic-stripped key.
type Aggregator struct {
	mu            sync.RWMutex
	total         int64
	found         int64
	cacheHits     int64
	byType        map[string]int64
	byTier        map[string]int64
	failures      map[string]int64
	latencies     []int64
	next          int
	wordCounts    map[string]int64
	notFoundWords map[string]int64
	startTime     time.Time

	logger *slog.Logger
}

var _ Tracker = (*Aggregator)(nil)

func NewAggregator() *Aggregator {
	return &Aggregator{
		byType:        make(map[string]int64),
		byTier:        make(map[string]int64),
		failures:      make(map[string]int64),
		latencies:     make([]int64, 0, 1024),
		wordCounts:    make(map[string]int64),
		notFoundWords: make(map[string]int64),
		startTime:     time.Now(),
		logger:        logger.WithComponent("analytics-aggregator"),
	}
}

// HandleEvent decodes lookup events from Kafka into agg. Undecodable
// messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[LookupEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode lookup event", "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

// Track records one event.
func (a *Aggregator) Track(event LookupEvent) {
	word := normalize.Key(event.Word)
	if word == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if event.CacheHit {
		a.cacheHits++
	}
	a.byType[string(event.Type)]++
	a.wordCounts[word]++
	if event.Found {
		a.found++
	} else if len(event.Failed) == 0 {
		a.notFoundWords[word]++
	}
	for tier, n := range map[string]int{
		"indexed": event.Indexed,
		"exact":   event.Exact,
		"root":    event.Root,
		"format":  event.Format,
		"partial": event.Partial,
	} {
		if n > 0 {
			a.byTier[tier] += int64(n)
		}
	}
	for _, s := range event.Failed {
		a.failures[s]++
	}

	if len(a.latencies) < maxLatencies {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencies
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalLookups:     a.total,
		Found:            a.found,
		NotFound:         a.total - a.found,
		CacheHits:        a.cacheHits,
		ByType:           copyCounts(a.byType),
		MatchesByTier:    copyCounts(a.byTier),
		StrategyFailures: copyCounts(a.failures),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopWords = topN(a.wordCounts, 10)
	stats.NotFoundWords = topN(a.notFoundWords, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.LookupsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most counted words, ties broken alphabetically.
func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word < result[j].Word
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
