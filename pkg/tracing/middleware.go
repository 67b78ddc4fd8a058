package tracing

import (
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

// Middleware starts a root span for a sampleRate fraction of requests,
// using the request ID as trace ID. It must run after the request ID
// middleware.
func Middleware(sampleRate float64) func(http.Handler) http.Handler {
	return middleware(sampleRate, rand.Float64)
}

func middleware(sampleRate float64, roll func() float64) func(http.Handler) http.Handler {
	log := slog.Default().With("component", "tracing")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sampleRate <= 0 || roll() >= sampleRate {
				next.ServeHTTP(w, r)
				return
			}
			ctx, span := StartSpan(r.Context(), r.Method+" "+r.URL.Path, logger.RequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			span.Log(log)
		})
	}
}
