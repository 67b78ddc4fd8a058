package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/cache"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store/storetest"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/position"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = map[string][]byte{}
	return n, nil
}

type recorder struct {
	mu     sync.Mutex
	events []analytics.LookupEvent
}

func (r *recorder) Track(ev analytics.LookupEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

type env struct {
	h       *Handler
	tracker *recorder
	agg     *analytics.Aggregator
}

func newEnv(t *testing.T, cached bool) env {
	t.Helper()
	s := storetest.Open(t)
	storetest.Seed(t, s)

	m := metrics.NewUnregistered()
	engine := discovery.New(s, discovery.Config{}, m)
	var c *cache.DiscoverCache
	if cached {
		c = cache.New(&memBackend{data: map[string][]byte{}}, time.Minute, m)
	}
	resolver, err := position.NewResolver(16)
	require.NoError(t, err)

	e := env{tracker: &recorder{}, agg: analytics.NewAggregator()}
	e.h = New(cache.NewDiscoverer(engine, c, m), resolver, e.tracker, e.agg, m, Config{MaxLookupWords: 3})
	return e
}

func do(t *testing.T, fn http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	target := "/api/v1/discover?word=" + url.QueryEscape("كِتاب") + "&root=" + url.QueryEscape("كتب")

	rec := do(t, e.h.Discover, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[discoverResponse](t, rec)
	assert.True(t, first.Found)
	assert.False(t, first.CacheHit)
	assert.Len(t, first.Indexed, 2)
	assert.Len(t, first.Roots, 4)
	assert.Len(t, first.Partial, 2)

	rec = do(t, e.h.Discover, http.MethodGet, target, "")
	second := decode[discoverResponse](t, rec)
	assert.True(t, second.CacheHit)
	assert.Len(t, second.Roots, 4)

	require.Len(t, e.tracker.events, 2)
	assert.Equal(t, analytics.EventDiscover, e.tracker.events[0].Type)
	assert.True(t, e.tracker.events[1].CacheHit)
	assert.Equal(t, 1, e.tracker.events[0].Exact)
}

func TestDiscoverRequiresWord(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	rec := do(t, e.h.Discover, http.MethodGet, "/api/v1/discover?word=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.tracker.events)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	rec := do(t, e.h.Lookup, http.MethodPost, "/api/v1/lookup", `{"words":["كتاب","سيارة"],"roots":["كتب"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Digest  string `json:"digest"`
		Sources []struct {
			Label     string `json:"label"`
			MatchTier string `json:"match_tier"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Digest, "Word: كتاب (root hint: كتب)")
	assert.Contains(t, resp.Digest, "Word: سيارة")
	assert.Contains(t, resp.Digest, "No entries found.")
	assert.NotEmpty(t, resp.Sources)
	assert.Equal(t, "R1", resp.Sources[0].Label)

	require.Len(t, e.tracker.events, 2)
	assert.Equal(t, analytics.EventLookup, e.tracker.events[0].Type)
}

func TestLookupValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"bad json", "{"},
		{"no words", `{"words":[]}`},
		{"blank words", `{"words":["  "]}`},
		{"too many", `{"words":["أ","ب","ت","ث"]}`},
	}
	e := newEnv(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, e.h.Lookup, http.MethodPost, "/api/v1/lookup", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestDefinition(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	tests := []struct {
		name    string
		query   url.Values
		status  int
		errText string
	}{
		{"found", url.Values{"dictionary": {storetest.Lisan}, "root": {"كتب"}}, http.StatusOK, ""},
		{"swapped", url.Values{"dictionary": {"كتب"}, "root": {storetest.Lisan}}, http.StatusOK, ""},
		{"missing root", url.Values{"dictionary": {storetest.Lisan}, "root": {"سير"}}, http.StatusNotFound, "root"},
		{"unknown dictionary", url.Values{"dictionary": {"معجم مجهول"}, "root": {"كتب"}}, http.StatusNotFound, "no dictionary named"},
		{"missing params", url.Values{"dictionary": {storetest.Lisan}}, http.StatusBadRequest, "required"},
		{"bad window", url.Values{"dictionary": {storetest.Lisan}, "root": {"كتب"}, "window": {"-1"}}, http.StatusBadRequest, "window"},
		{"bad full", url.Values{"dictionary": {storetest.Lisan}, "root": {"كتب"}, "full": {"maybe"}}, http.StatusBadRequest, "full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, e.h.Definition, http.MethodGet, "/api/v1/definition?"+tt.query.Encode(), "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.errText != "" {
				assert.Contains(t, rec.Body.String(), tt.errText)
			}
		})
	}

	rec := do(t, e.h.Definition, http.MethodGet, "/api/v1/definition?"+url.Values{
		"dictionary": {"كتب"}, "root": {storetest.Lisan}, "words": {"الكتاب, كتب"}, "full": {"true"},
	}.Encode(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var def struct {
		Found            bool   `json:"found"`
		Swapped          bool   `json:"swapped"`
		IsFullDefinition bool   `json:"is_full_definition"`
		Content          string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.True(t, def.Found)
	assert.True(t, def.Swapped)
	assert.True(t, def.IsFullDefinition)
	assert.Equal(t, storetest.KatabaDefinition, def.Content)
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	body := `{"raw_text":"ذَهَبَ الرجلُ وذَهَبَ أخوه","primary_word":"ذهب","current_occurrence":1,
		"lines":[{"text":"ذَهَبَ الرجلُ ","y":0},{"text":"وذَهَبَ أخوه","y":24}]}`
	rec := do(t, e.h.Highlight, http.MethodPost, "/api/v1/highlight", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[highlightResponse](t, rec)
	assert.Equal(t, 2, resp.MainCount)
	require.NotNil(t, resp.Position)
	assert.Equal(t, 1, resp.Position.Line)
	assert.InDelta(t, 24.0, resp.Position.Y, 0)

	var joined strings.Builder
	for _, s := range resp.Spans {
		joined.WriteString(s.Text)
	}
	assert.Equal(t, "ذَهَبَ الرجلُ وذَهَبَ أخوه", joined.String())
}

func TestHighlightValidation(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	rec := do(t, e.h.Highlight, http.MethodPost, "/api/v1/highlight", `{"raw_text":"نص"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e.h.Highlight, http.MethodPost, "/api/v1/highlight", `{"raw_text":"نص","primary_word":"نص","mode":"stem"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDictionaries(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	rec := do(t, e.h.Dictionaries, http.MethodGet, "/api/v1/dictionaries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Count int `json:"count"`
	}](t, rec)
	assert.Equal(t, 5, resp.Count)
}

func TestCacheEndpoints(t *testing.T) {
	t.Parallel()

	e := newEnv(t, true)
	do(t, e.h.Discover, http.MethodGet, "/api/v1/discover?word="+url.QueryEscape("قلم"), "")

	rec := do(t, e.h.CacheStats, http.MethodGet, "/api/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, stats["misses"])

	rec = do(t, e.h.CacheInvalidate, http.MethodPost, "/api/v1/cache/invalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["removed"])

	disabled := newEnv(t, false)
	rec = do(t, disabled.h.CacheStats, http.MethodGet, "/api/v1/cache/stats", "")
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())
	rec = do(t, disabled.h.CacheInvalidate, http.MethodPost, "/api/v1/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalytics(t *testing.T) {
	t.Parallel()

	e := newEnv(t, false)
	e.agg.Track(analytics.LookupEvent{Type: analytics.EventDiscover, Word: "كتاب", Found: true})

	rec := do(t, e.h.Analytics, http.MethodGet, "/api/v1/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[analytics.AggregatedStats](t, rec)
	assert.EqualValues(t, 1, stats.TotalLookups)
}
