// Package collector accumulates analytics events in memory and flushes them
// to Kafka in bulk.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

var _ Publisher = (*kafka.Producer)(nil)

// BatchCollector flushes when the buffer reaches batchSize events or after
// flushInterval, whichever comes first.
type BatchCollector struct {
	publisher     Publisher
	mu            sync.Mutex
	flushMu       sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	done          chan struct{}
}

var _ analytics.Tracker = (*BatchCollector)(nil)

// New creates a collector. m may be nil.
func New(publisher Publisher, batchSize int, flushInterval time.Duration, m *metrics.Metrics) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		publisher:     publisher,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       m,
		logger:        logger.WithComponent("analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop, which runs until ctx is
// cancelled and then flushes once more.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bc.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("analytics collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// Track buffers event, keyed by word so a word's events share a partition.
func (bc *BatchCollector) Track(event analytics.LookupEvent) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{Key: event.Word, Value: event})
	shouldFlush := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if shouldFlush {
		go bc.Flush(context.Background())
	}
}

// Close waits for the flush loop started by Start to finish.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the current number of buffered events.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

// Flush publishes the buffered events. Failed batches are put back, up to
// three batches' worth.
func (bc *BatchCollector) Flush(ctx context.Context) {
	bc.flushMu.Lock()
	defer bc.flushMu.Unlock()

	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()

	if err := bc.publisher.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		bc.count("failed", len(batch))

		bc.mu.Lock()
		bc.buffer = append(batch, bc.buffer...)
		if limit := bc.batchSize * 3; len(bc.buffer) > limit {
			dropped := len(bc.buffer) - limit
			bc.buffer = bc.buffer[:limit]
			bc.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
			bc.count("dropped", dropped)
		}
		bc.mu.Unlock()
		return
	}

	bc.count("published", len(batch))
	bc.logger.Debug("batch flushed", "events", len(batch))
}

func (bc *BatchCollector) count(status string, n int) {
	if bc.metrics != nil {
		bc.metrics.LookupEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
