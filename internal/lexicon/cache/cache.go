// Package cache keeps discovery results in Redis. Keys are derived from the
// diacritic-stripped word and root hint, so vocalized and bare spellings of
// the same request share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/redis"
)

const keyPrefix = "discover:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ Backend = (*pkgredis.Client)(nil)

// DiscoverCache stores discovery results in Redis with single-flight
// computation of misses.
type DiscoverCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *DiscoverCache {
	return &DiscoverCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("discover-cache"),
	}
}

// Get returns the cached result for the request. The result carries the
// request's own spelling of word and rootHint.
func (c *DiscoverCache) Get(ctx context.Context, word, rootHint string) (discovery.Result, bool) {
	key := BuildKey(word, rootHint)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return discovery.Result{}, false
	}
	var result discovery.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return discovery.Result{}, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "word", word, "key", key)
	return forRequest(result, word, rootHint), true
}

// Set stores result. Results degraded by a strategy failure are not cached.
func (c *DiscoverCache) Set(ctx context.Context, word, rootHint string, result discovery.Result) {
	if len(result.Failed) > 0 {
		return
	}
	key := BuildKey(word, rootHint)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes it once per key,
// however many callers ask concurrently. The bool reports a cache hit.
func (c *DiscoverCache) GetOrCompute(
	ctx context.Context,
	word, rootHint string,
	computeFn func() discovery.Result,
) (discovery.Result, bool) {
	if result, ok := c.Get(ctx, word, rootHint); ok {
		return result, true
	}
	key := BuildKey(word, rootHint)
	val, _, _ := c.group.Do(key, func() (interface{}, error) {
		result := computeFn()
		c.Set(ctx, word, rootHint, result)
		return result, nil
	})
	return forRequest(val.(discovery.Result), word, rootHint), false
}

// forRequest relabels a result shared between spellings of one key.
func forRequest(r discovery.Result, word, rootHint string) discovery.Result {
	r.Word = strings.TrimSpace(word)
	r.RootHint = strings.TrimSpace(rootHint)
	return r
}

// Invalidate deletes every cached discovery result.
func (c *DiscoverCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns the hit and miss counts since start.
func (c *DiscoverCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *DiscoverCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the Redis key of a discovery request.
func BuildKey(word, rootHint string) string {
	raw := normalize.Key(word) + "|root=" + normalize.Key(rootHint)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
