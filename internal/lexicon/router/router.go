// Package router wires up the lexicon service routes and applies the
// middleware chain (RequestID → Tracing → CORS → Timeout → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/handler"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/tracing"
)

// Options configures the middleware. A nil Limiter disables rate limiting.
// An empty AdminToken leaves the cache invalidation route open.
type Options struct {
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	TraceSampleRate float64
	Limiter         *ratelimit.Limiter
	AdminToken      string
}

// New builds the service HTTP handler.
//
// Route table:
//
//	GET    /api/v1/discover            → discovery for one word
//	POST   /api/v1/lookup              → tool-calling digest (rate limited)
//	GET    /api/v1/definition          → root definition segments
//	POST   /api/v1/highlight           → highlight spans
//	GET    /api/v1/dictionaries        → dictionary list
//	GET    /api/v1/analytics           → aggregated lookup stats
//	GET    /api/v1/cache/stats         → discovery cache stats
//	POST   /api/v1/cache/invalidate    → flush the discovery cache (admin)
//	GET    /health/live, /health/ready → probes
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("GET /api/v1/discover", h.Discover)
	var lookup http.Handler = http.HandlerFunc(h.Lookup)
	if opts.Limiter != nil {
		lookup = middleware.RateLimit(opts.Limiter, m)(lookup)
	}
	mux.Handle("POST /api/v1/lookup", lookup)
	mux.HandleFunc("GET /api/v1/definition", h.Definition)
	mux.HandleFunc("POST /api/v1/highlight", h.Highlight)
	mux.HandleFunc("GET /api/v1/dictionaries", h.Dictionaries)

	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	var invalidate http.Handler = http.HandlerFunc(h.CacheInvalidate)
	if opts.AdminToken != "" {
		invalidate = middleware.AdminAuth(opts.AdminToken)(invalidate)
	}
	mux.Handle("POST /api/v1/cache/invalidate", invalidate)

	// applied inside-out; metrics sits on the mux to see the matched pattern
	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	if opts.RequestTimeout > 0 {
		chain = middleware.Timeout(opts.RequestTimeout)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(opts.AllowedOrigins...))(chain)
	chain = tracing.Middleware(opts.TraceSampleRate)(chain)
	chain = middleware.RequestID(chain)

	return chain
}
