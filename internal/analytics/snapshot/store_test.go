package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store/storetest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(storetest.Open(t).DB(), store.DialectSQLite)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSaveAndLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.Save(ctx, analytics.AggregatedStats{TotalLookups: 1}))
	require.NoError(t, s.Save(ctx, analytics.AggregatedStats{
		TotalLookups: 3,
		TopWords:     []analytics.WordCount{{Word: "كتاب", Count: 3}},
	}))

	latest, err = s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.EqualValues(t, 3, latest.TotalLookups)
	assert.Equal(t, "كتاب", latest.TopWords[0].Word)

	all, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.EqualValues(t, 1, all[1].TotalLookups)
}

func TestListSkipsCorruptRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Save(ctx, analytics.AggregatedStats{TotalLookups: 1}))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES (?, ?)`, "{not json", time.Now().UTC())
	require.NoError(t, err)

	all, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.EqualValues(t, 1, all[0].TotalLookups)
}

func TestPeriodicSaveWritesFinalSnapshot(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	agg := analytics.NewAggregator()
	agg.Track(analytics.LookupEvent{Word: "كتاب", Found: true})

	ctx, cancel := context.WithCancel(context.Background())
	s.StartPeriodicSave(ctx, agg, time.Hour)
	cancel()

	assert.Eventually(t, func() bool {
		latest, err := s.Latest(context.Background())
		return err == nil && latest != nil && latest.TotalLookups == 1
	}, 2*time.Second, 20*time.Millisecond)
}
