package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/ratelimit"
)

// RateLimit rejects a client's requests once its token bucket is empty.
// Clients are keyed by the first X-Forwarded-For address, else the remote
// address. m may be nil.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow(ClientKey(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if m != nil {
				m.RateLimitRejectedTotal.Inc()
			}
			secs := int(limiter.RetryAfter().Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
		})
	}
}

// ClientKey identifies the caller of r.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
