// Package discovery finds the dictionary entries for a word across every
// dictionary in the store. Three strategies run side by side: indexed-word
// lookup, root lookup in classical dictionaries and substring lookup in
// digitized dictionaries. A failing strategy contributes nothing; it never
// fails the request.
package discovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/segment"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/tracing"
)

// Strategy names, used in logs and metric labels.
const (
	StrategyIndexed = "indexed"
	StrategyRoot    = "root"
	StrategyPartial = "partial"
)

// RootMatch is a root found by the root or partial strategy.
type RootMatch struct {
	store.Root
	Tier Tier   `json:"tier"`
	Key  string `json:"key"`
}

// Result is everything discovered for one word.
type Result struct {
	Word     string              `json:"word"`
	RootHint string              `json:"root_hint,omitempty"`
	Indexed  []store.IndexedWord `json:"indexed"`
	Roots    []RootMatch         `json:"roots"`
	Partial  []RootMatch         `json:"partial"`
	// Failed names the strategies that returned empty because of a store
	// error.
	Failed []string `json:"failed,omitempty"`
}

// Found reports whether any strategy matched.
func (r Result) Found() bool {
	return len(r.Indexed) > 0 || len(r.Roots) > 0 || len(r.Partial) > 0
}

// Config tunes the engine.
type Config struct {
	// KeyConcurrency bounds parallel key queries inside one strategy.
	KeyConcurrency int
	// StrategyTimeout bounds each strategy. Zero means no limit.
	StrategyTimeout time.Duration
	Segment         segment.Options
}

// Engine runs discovery against a store.Reader.
type Engine struct {
	reader  store.Reader
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. m may be nil.
func New(reader store.Reader, cfg Config, m *metrics.Metrics) *Engine {
	if cfg.KeyConcurrency <= 0 {
		cfg.KeyConcurrency = 4
	}
	return &Engine{
		reader:  reader,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("discovery"),
	}
}

// Reader returns the store the engine queries.
func (e *Engine) Reader() store.Reader {
	return e.reader
}

// Discover runs all strategies for word with an optional root hint.
func (e *Engine) Discover(ctx context.Context, word, rootHint string) Result {
	res := Result{Word: strings.TrimSpace(word), RootHint: strings.TrimSpace(rootHint)}
	if res.Word == "" {
		return res
	}

	var (
		g       errgroup.Group
		failed  [3]bool
		indexed []store.IndexedWord
		roots   []RootMatch
		partial []RootMatch
	)
	g.Go(func() error {
		indexed, failed[0] = runStrategy(ctx, e, StrategyIndexed, func(ctx context.Context) ([]store.IndexedWord, error) {
			return e.indexedWords(ctx, res.Word)
		})
		return nil
	})
	g.Go(func() error {
		roots, failed[1] = runStrategy(ctx, e, StrategyRoot, func(ctx context.Context) ([]RootMatch, error) {
			return e.roots(ctx, rootKeys(res.Word, res.RootHint), store.KindClassical, e.reader.FindRoots)
		})
		return nil
	})
	g.Go(func() error {
		partial, failed[2] = runStrategy(ctx, e, StrategyPartial, func(ctx context.Context) ([]RootMatch, error) {
			return e.roots(ctx, rootKeys(res.Word, res.RootHint), store.KindDigitized, e.reader.FindRootsContaining)
		})
		return nil
	})
	_ = g.Wait()

	res.Indexed, res.Roots, res.Partial = indexed, roots, partial
	for i, name := range []string{StrategyIndexed, StrategyRoot, StrategyPartial} {
		if failed[i] {
			res.Failed = append(res.Failed, name)
		}
	}
	if e.metrics != nil {
		outcome := "not_found"
		if res.Found() {
			outcome = "found"
		}
		e.metrics.DiscoverRequestsTotal.WithLabelValues(outcome).Inc()
	}
	return res
}

// runStrategy applies the strategy timeout, records metrics and turns a
// failure into an empty result.
func runStrategy[T any](ctx context.Context, e *Engine, name string, fn func(ctx context.Context) ([]T, error)) ([]T, bool) {
	ctx, span := tracing.StartChildSpan(ctx, "strategy."+name)
	defer span.End()

	start := time.Now()
	out, err := resilience.WithTimeout(ctx, e.cfg.StrategyTimeout, name, fn)
	span.SetAttr("results", len(out))
	if e.metrics != nil {
		e.metrics.DiscoverLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		logger.FromContext(ctx).Error("discovery strategy failed",
			"component", "discovery", "strategy", name, "error", err)
		if e.metrics != nil {
			e.metrics.StrategyFailuresTotal.WithLabelValues(name).Inc()
		}
		return nil, true
	}
	if e.metrics != nil {
		e.metrics.DiscoverMatches.WithLabelValues(name).Observe(float64(len(out)))
	}
	return out, false
}

// queryAll runs fn for every key with bounded concurrency and returns the
// per-key results in key order.
func queryAll[K, T any](ctx context.Context, limit int, keys []K, fn func(ctx context.Context, key K) ([]T, error)) ([][]T, error) {
	out := make([][]T, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, k := range keys {
		g.Go(func() error {
			rows, err := fn(ctx, k)
			if err != nil {
				return err
			}
			out[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) indexedWords(ctx context.Context, word string) ([]store.IndexedWord, error) {
	perKey, err := queryAll(ctx, e.cfg.KeyConcurrency, wordKeys(word), e.reader.FindIndexedWords)
	if err != nil {
		return nil, err
	}
	seen := roaring64.New()
	var out []store.IndexedWord
	for _, rows := range perKey {
		for _, w := range rows {
			if seen.Contains(uint64(w.ID)) {
				continue
			}
			seen.Add(uint64(w.ID))
			out = append(out, w)
		}
	}
	return out, nil
}

type rootQuery func(ctx context.Context, key string, kind store.Kind) ([]store.Root, error)

// roots queries every key and merges in key order, keeping the first
// occurrence of each root id. Keys are ordered by tier, so the kept match
// carries the best tier that found the root.
func (e *Engine) roots(ctx context.Context, keys []searchKey, kind store.Kind, query rootQuery) ([]RootMatch, error) {
	perKey, err := queryAll(ctx, e.cfg.KeyConcurrency, keys, func(ctx context.Context, k searchKey) ([]store.Root, error) {
		return query(ctx, k.text, kind)
	})
	if err != nil {
		return nil, err
	}
	seen := roaring64.New()
	var out []RootMatch
	for i, rows := range perKey {
		for _, r := range rows {
			if seen.Contains(uint64(r.ID)) {
				continue
			}
			seen.Add(uint64(r.ID))
			out = append(out, RootMatch{Root: r, Tier: keys[i].tier, Key: keys[i].text})
		}
	}
	return out, nil
}

// NewConfig maps the service configuration onto engine settings.
func NewConfig(d config.DiscoveryConfig, m config.MatchingConfig) Config {
	return Config{
		KeyConcurrency:  d.Concurrency,
		StrategyTimeout: d.StrategyTimeout,
		Segment: segment.Options{
			WindowSize:    m.DefaultWindow,
			Threshold:     m.SegmentThreshold,
			MaxSegments:   m.MaxSegments,
			PerWord:       m.PerWordOccurrence,
			OverlapFactor: m.OverlapFactor,
		},
	}
}
