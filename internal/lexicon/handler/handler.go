// Package handler serves the lexicon HTTP API: discovery, tool-calling
// lookups, root definitions, highlighting and the cache and analytics
// endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/cache"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/digest"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/position"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/scanner"
	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

const (
	defaultMaxLookupWords = 20
	maxBodyBytes          = 1 << 20
)

// StatsSource serves aggregated lookup statistics.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

// Config tunes request validation and the digest.
type Config struct {
	MaxLookupWords int
	Digest         digest.Options
}

type Handler struct {
	discoverer *cache.Discoverer
	resolver   *position.Resolver
	tracker    analytics.Tracker
	stats      StatsSource
	metrics    *metrics.Metrics
	cfg        Config
	logger     *slog.Logger
}

// New creates a Handler. tracker, stats and m may be nil.
func New(d *cache.Discoverer, resolver *position.Resolver, tracker analytics.Tracker, stats StatsSource, m *metrics.Metrics, cfg Config) *Handler {
	if cfg.MaxLookupWords <= 0 {
		cfg.MaxLookupWords = defaultMaxLookupWords
	}
	return &Handler{
		discoverer: d,
		resolver:   resolver,
		tracker:    tracker,
		stats:      stats,
		metrics:    m,
		cfg:        cfg,
		logger:     logger.WithComponent("lexicon-handler"),
	}
}

type discoverResponse struct {
	discovery.Result
	Found    bool `json:"found"`
	CacheHit bool `json:"cache_hit"`
}

// Discover handles GET /api/v1/discover?word=&root=.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	word := strings.TrimSpace(r.URL.Query().Get("word"))
	if word == "" {
		h.writeAppError(w, apperrors.Invalid("query parameter 'word' is required"))
		return
	}
	root := r.URL.Query().Get("root")

	res, hit := h.discoverer.DiscoverCached(ctx, word, root)
	latency := time.Since(start)

	logger.FromContext(ctx).Info("discover completed",
		"word", word,
		"found", res.Found(),
		"indexed", len(res.Indexed),
		"roots", len(res.Roots),
		"partial", len(res.Partial),
		"cache_hit", hit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(analytics.NewLookupEvent(analytics.EventDiscover, res, hit, latency, logger.RequestID(ctx)))

	h.writeJSON(w, http.StatusOK, discoverResponse{Result: res, Found: res.Found(), CacheHit: hit})
}

// Lookup handles POST /api/v1/lookup, the tool-calling digest.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req digest.Request
	if err := decodeBody(r, &req); err != nil {
		h.writeAppError(w, err)
		return
	}
	n := 0
	for _, word := range req.Words {
		if strings.TrimSpace(word) != "" {
			n++
		}
	}
	switch {
	case n == 0:
		h.writeAppError(w, apperrors.Invalid("at least one word is required"))
		return
	case len(req.Words) > h.cfg.MaxLookupWords:
		h.writeAppError(w, apperrors.Invalid("too many words, maximum is %d", h.cfg.MaxLookupWords))
		return
	}

	resp := digest.Lookup(ctx, h.discoverer, req, h.cfg.Digest)
	latency := time.Since(start)

	logger.FromContext(ctx).Info("lookup completed",
		"words", n,
		"sources", len(resp.Sources),
		"latency_ms", latency.Milliseconds(),
	)
	for _, res := range resp.Results {
		h.track(analytics.NewLookupEvent(analytics.EventLookup, res, false, latency, logger.RequestID(ctx)))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Definition handles GET /api/v1/definition.
func (h *Handler) Definition(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	q := r.URL.Query()

	req := discovery.DefinitionRequest{
		Dictionary: strings.TrimSpace(q.Get("dictionary")),
		Root:       strings.TrimSpace(q.Get("root")),
		Words:      splitList(q.Get("words")),
	}
	if req.Dictionary == "" || req.Root == "" {
		h.writeAppError(w, apperrors.Invalid("query parameters 'dictionary' and 'root' are required"))
		return
	}
	if v := q.Get("window"); v != "" {
		window, err := strconv.Atoi(v)
		if err != nil || window < 1 {
			h.writeAppError(w, apperrors.Invalid("window must be a positive integer"))
			return
		}
		req.WindowSize = window
	}
	if v := q.Get("full"); v != "" {
		full, err := strconv.ParseBool(v)
		if err != nil {
			h.writeAppError(w, apperrors.Invalid("full must be a boolean"))
			return
		}
		req.Full = full
	}

	def := h.discoverer.Engine().Definition(ctx, req)
	h.track(analytics.LookupEvent{
		Type:      analytics.EventDefinition,
		Word:      req.Root,
		RootHint:  req.Dictionary,
		Found:     def.Found,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})

	switch {
	case def.Failed:
		h.writeAppError(w, apperrors.New(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "dictionary store unavailable"))
	case !def.Found && !h.knownDictionary(ctx, req.Dictionary, req.Root):
		h.writeAppError(w, apperrors.Newf(apperrors.ErrDictionaryNotFound, http.StatusNotFound, "no dictionary named %q", req.Dictionary))
	case !def.Found:
		h.writeAppError(w, apperrors.Newf(apperrors.ErrRootNotFound, http.StatusNotFound, "root %q not found in %q", req.Root, req.Dictionary))
	default:
		h.writeJSON(w, http.StatusOK, def)
	}
}

// knownDictionary reports whether either name is a dictionary, since
// definition lookups accept the two arguments in either order. A failed
// listing counts as known, so the caller falls back to a root miss.
func (h *Handler) knownDictionary(ctx context.Context, names ...string) bool {
	dicts, err := h.discoverer.Engine().Reader().Dictionaries(ctx)
	if err != nil {
		return true
	}
	for _, d := range dicts {
		for _, n := range names {
			if d.Name == strings.TrimSpace(n) {
				return true
			}
		}
	}
	return false
}

type highlightRequest struct {
	scanner.HighlightRequest
	// Lines is the rendered layout; when present the response carries the
	// position of the current occurrence.
	Lines []position.LineMetric `json:"lines,omitempty"`
}

type highlightResponse struct {
	scanner.HighlightResult
	Position *position.Position `json:"position,omitempty"`
}

// Highlight handles POST /api/v1/highlight.
func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeAppError(w, err)
		return
	}
	if strings.TrimSpace(req.PrimaryWord) == "" {
		h.writeAppError(w, apperrors.Invalid("primary_word is required"))
		return
	}
	switch req.Mode {
	case "":
		req.Mode = scanner.ModeWord
	case scanner.ModeWord, scanner.ModeRoot:
	default:
		h.writeAppError(w, apperrors.Invalid("mode must be 'word' or 'root'"))
		return
	}

	res := scanner.Highlight(req.HighlightRequest)
	if h.metrics != nil {
		h.metrics.ScansTotal.WithLabelValues(string(req.Mode)).Inc()
		h.metrics.ScanOccurrences.Observe(float64(res.MainCount))
	}

	out := highlightResponse{HighlightResult: res}
	if len(req.Lines) > 0 && res.CurrentStart >= 0 && h.resolver != nil {
		key := position.Key{Word: normalize.Key(req.PrimaryWord), Occurrence: req.CurrentOccurrence}
		pos := h.resolver.Locate(key, req.RawText, req.Lines, res.CurrentStart)
		out.Position = &pos
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Dictionaries handles GET /api/v1/dictionaries.
func (h *Handler) Dictionaries(w http.ResponseWriter, r *http.Request) {
	dicts, err := h.discoverer.Engine().Reader().Dictionaries(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("listing dictionaries failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"dictionaries": dicts, "count": len(dicts)})
}

// Analytics handles GET /api/v1/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats.Stats())
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.discoverer.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.discoverer.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	removed, err := c.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "removed": removed})
}

func (h *Handler) track(ev analytics.LookupEvent) {
	if h.tracker != nil {
		h.tracker.Track(ev)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	message := "internal error"
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		message = appErr.Message
	} else if status := apperrors.HTTPStatusCode(err); status != http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	h.writeError(w, apperrors.HTTPStatusCode(err), message)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Invalid("request body is required")
		}
		return apperrors.Invalid("invalid JSON body")
	}
	return nil
}

// splitList splits a comma separated parameter, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
