package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestFlushPublishesBuffer(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	m := metrics.NewUnregistered()
	bc := New(pub, 100, time.Hour, m)

	bc.Track(analytics.LookupEvent{Word: "كتاب"})
	bc.Track(analytics.LookupEvent{Word: "قلم"})
	assert.Equal(t, 2, bc.BufferLen())

	bc.Flush(context.Background())
	assert.Equal(t, 0, bc.BufferLen())
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "كتاب", pub.batches[0][0].Key)
	assert.InDelta(t, 2, testutil.ToFloat64(m.LookupEventsTotal.WithLabelValues("published")), 0)

	bc.Flush(context.Background())
	assert.Len(t, pub.batches, 1, "empty buffer is not published")
}

func TestFailedFlushRequeues(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("broker down")}
	m := metrics.NewUnregistered()
	bc := New(pub, 100, time.Hour, m)

	bc.Track(analytics.LookupEvent{Word: "كتاب"})
	bc.Flush(context.Background())
	assert.Equal(t, 1, bc.BufferLen())
	assert.InDelta(t, 1, testutil.ToFloat64(m.LookupEventsTotal.WithLabelValues("failed")), 0)

	pub.setErr(nil)
	bc.Flush(context.Background())
	assert.Equal(t, 0, bc.BufferLen())
	assert.Equal(t, 1, pub.published())
}

func TestRequeueIsCapped(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("broker down")}
	m := metrics.NewUnregistered()
	bc := New(pub, 2, time.Hour, m)

	bc.mu.Lock()
	for i := 0; i < 8; i++ {
		bc.buffer = append(bc.buffer, kafka.Event{Key: "كتاب"})
	}
	bc.mu.Unlock()

	bc.Flush(context.Background())
	assert.Equal(t, 6, bc.BufferLen())
	assert.InDelta(t, 2, testutil.ToFloat64(m.LookupEventsTotal.WithLabelValues("dropped")), 0)
}

func TestStartFlushesOnShutdown(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	bc := New(pub, 100, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)

	bc.Track(analytics.LookupEvent{Word: "كتاب"})
	cancel()
	bc.Close()

	assert.Equal(t, 1, pub.published())
	assert.Equal(t, 0, bc.BufferLen())
}

func TestFullBufferTriggersFlush(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	bc := New(pub, 2, time.Hour, nil)
	bc.Track(analytics.LookupEvent{Word: "كتاب"})
	bc.Track(analytics.LookupEvent{Word: "قلم"})

	assert.Eventually(t, func() bool { return pub.published() == 2 }, time.Second, 10*time.Millisecond)
}
