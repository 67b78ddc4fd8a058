// Package indexer rebuilds the precomputed position index of the dictionary
// store: the diacritic-stripped lookup keys of roots and words and the rune
// offsets at which every indexed word occurs in its root's definition.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

// DefaultWorkers is the size of the rebuild worker pool.
const DefaultWorkers = 8

// Store is what a rebuild reads and writes. *store.Store implements it.
type Store interface {
	FillRootKeys(ctx context.Context, dictionaryID int64) (int64, error)
	RootsWithWords(ctx context.Context, dictionaryID int64) ([]int64, error)
	RootWords(ctx context.Context, rootID int64) (*store.Root, []store.IndexedWord, error)
	UpdateWordPositions(ctx context.Context, u store.RootUpdate) error
}

var _ Store = (*store.Store)(nil)

var _ Publisher = (*kafka.Producer)(nil)

// Publisher announces a finished rebuild. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Options configure a Builder.
type Options struct {
	Workers int
	// QueueSize buffers root ids between the lister and the workers.
	QueueSize int
	// DictionaryID limits the rebuild to one dictionary; 0 means all.
	DictionaryID int64
}

// Stats summarize a rebuild.
type Stats struct {
	Roots      int64         `json:"roots"`
	KeysFilled int64         `json:"keys_filled"`
	Failed     int64         `json:"failed"`
	Words      int64         `json:"words"`
	Positions  int64         `json:"positions"`
	Dropped    int64         `json:"dropped"`
	Duration   time.Duration `json:"duration"`
}

type Builder struct {
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	opts      Options
	logger    *slog.Logger
}

// New creates a Builder. publisher and m may be nil.
func New(s Store, publisher Publisher, m *metrics.Metrics, opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers * 4
	}
	return &Builder{
		store:     s,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		logger:    logger.WithComponent("indexer"),
	}
}

// Rebuild fills the lookup key of every root without one, then recomputes
// every root that has indexed words. A root that fails is
// logged and counted; the rebuild continues with the others. It returns an
// error only when the root list cannot be read or ctx is cancelled.
func (b *Builder) Rebuild(ctx context.Context) (Stats, error) {
	start := time.Now()
	keysFilled, err := b.store.FillRootKeys(ctx, b.opts.DictionaryID)
	if err != nil {
		return Stats{}, fmt.Errorf("filling root keys: %w", err)
	}
	ids, err := b.store.RootsWithWords(ctx, b.opts.DictionaryID)
	if err != nil {
		return Stats{}, fmt.Errorf("listing roots: %w", err)
	}
	b.logger.Info("rebuild started", "roots", len(ids), "workers", b.opts.Workers)

	var (
		roots, failed, words, positions, dropped atomic.Int64
		wg                                       sync.WaitGroup
	)
	jobs := make(chan int64, b.opts.QueueSize)
	for i := 0; i < b.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				r, err := b.indexRoot(ctx, id)
				if err != nil {
					failed.Add(1)
					b.count("failed")
					b.logger.Error("root rebuild failed", "root_id", id, "error", err)
					continue
				}
				roots.Add(1)
				b.count("indexed")
				words.Add(int64(r.words))
				positions.Add(int64(r.positions))
				dropped.Add(int64(r.dropped))
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	stats := Stats{
		Roots:      roots.Load(),
		KeysFilled: keysFilled,
		Failed:     failed.Load(),
		Words:      words.Load(),
		Positions:  positions.Load(),
		Dropped:    dropped.Load(),
		Duration:   time.Since(start),
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("rebuild interrupted: %w", err)
	}
	b.logger.Info("rebuild finished",
		"roots", stats.Roots,
		"keys_filled", stats.KeysFilled,
		"failed", stats.Failed,
		"words", stats.Words,
		"positions", stats.Positions,
		"dropped", stats.Dropped,
		"duration", stats.Duration,
	)
	b.announce(ctx, stats)
	return stats, nil
}

type rootResult struct {
	words, positions, dropped int
}

func (b *Builder) indexRoot(ctx context.Context, id int64) (rootResult, error) {
	root, words, err := b.store.RootWords(ctx, id)
	if err != nil {
		return rootResult{}, err
	}
	def := []rune(root.Definition)
	u := store.RootUpdate{
		RootID:    root.ID,
		RootPlain: normalize.Key(root.Root),
		Words:     make([]store.WordUpdate, 0, len(words)),
	}
	var res rootResult
	for _, w := range words {
		pos, dropped := positionsRunes(def, w.Word)
		if dropped > 0 {
			b.logger.Debug("positions dropped", "root_id", id, "word", w.Word, "dropped", dropped)
			if b.metrics != nil {
				b.metrics.PositionsDroppedTotal.Add(float64(dropped))
			}
		}
		u.Words = append(u.Words, store.WordUpdate{
			ID:           w.ID,
			WordPlain:    normalize.Key(w.Word),
			AllPositions: pos,
		})
		res.words++
		res.positions += len(pos)
		res.dropped += dropped
	}
	if err := b.store.UpdateWordPositions(ctx, u); err != nil {
		return rootResult{}, err
	}
	return res, nil
}

// announce tells running services that cached lookups are stale.
func (b *Builder) announce(ctx context.Context, stats Stats) {
	if b.publisher == nil || stats.Roots+stats.KeysFilled == 0 {
		return
	}
	ev := analytics.InvalidateEvent{Reason: "reindex", Roots: int(stats.Roots + stats.KeysFilled), Timestamp: time.Now().UTC()}
	if err := b.publisher.Publish(ctx, kafka.Event{Key: "reindex", Value: ev}); err != nil {
		b.logger.Warn("failed to publish cache invalidation", "error", err)
	}
}

func (b *Builder) count(status string) {
	if b.metrics != nil {
		b.metrics.RootsIndexedTotal.WithLabelValues(status).Inc()
	}
}
