package cache

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

// Discoverer serves discovery through the cache. A nil cache passes every
// request to the engine.
type Discoverer struct {
	engine  *discovery.Engine
	cache   *DiscoverCache
	metrics *metrics.Metrics
}

// NewDiscoverer serves engine through cache. cache and m may be nil.
func NewDiscoverer(engine *discovery.Engine, cache *DiscoverCache, m *metrics.Metrics) *Discoverer {
	return &Discoverer{engine: engine, cache: cache, metrics: m}
}

// Discover returns the cached result for word and rootHint, computing it on
// a miss.
func (d *Discoverer) Discover(ctx context.Context, word, rootHint string) discovery.Result {
	res, _ := d.DiscoverCached(ctx, word, rootHint)
	return res
}

// DiscoverCached is Discover that also reports whether the result came from
// the cache.
func (d *Discoverer) DiscoverCached(ctx context.Context, word, rootHint string) (discovery.Result, bool) {
	if d.cache == nil {
		return d.engine.Discover(ctx, word, rootHint), false
	}
	res, hit := d.cache.GetOrCompute(ctx, word, rootHint, func() discovery.Result {
		return d.engine.Discover(ctx, word, rootHint)
	})
	if hit && d.metrics != nil {
		d.metrics.DiscoverRequestsTotal.WithLabelValues("cached").Inc()
	}
	return res, hit
}

// Cache returns the underlying cache, or nil.
func (d *Discoverer) Cache() *DiscoverCache {
	return d.cache
}

// Engine returns the wrapped engine.
func (d *Discoverer) Engine() *discovery.Engine {
	return d.engine
}
