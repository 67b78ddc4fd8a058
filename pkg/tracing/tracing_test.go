package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

func TestChildSpans(t *testing.T) {
	t.Parallel()

	ctx, root := StartSpan(context.Background(), "discover", "req-1")
	childCtx, child := StartChildSpan(ctx, "strategy.indexed")
	child.SetAttr("keys", 2)
	child.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, "req-1", child.TraceID)
	assert.Same(t, child, SpanFromContext(childCtx))
	assert.Equal(t, 2, child.Attrs["keys"])

	var buf bytes.Buffer
	root.Log(logger.New(&buf, "debug", "json"))
	assert.Contains(t, buf.String(), `"span":"strategy.indexed"`)
	assert.Contains(t, buf.String(), `"depth":1`)
}

func TestChildWithoutParentIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	got, span := StartChildSpan(ctx, "orphan")
	assert.Nil(t, span)
	assert.Equal(t, ctx, got)
	span.SetAttr("k", "v")
	span.End()
	span.Log(slog.Default())
}

func TestMiddlewareSampling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rate    float64
		roll    float64
		sampled bool
	}{
		{"disabled", 0, 0, false},
		{"below rate", 0.5, 0.1, true},
		{"above rate", 0.5, 0.9, false},
		{"always", 1, 0.99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var span *Span
			h := middleware(tt.rate, func() float64 { return tt.roll })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				span = SpanFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/discover", nil)
			req = req.WithContext(logger.WithRequestID(req.Context(), "req-9"))
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !tt.sampled {
				assert.Nil(t, span)
				return
			}
			require.NotNil(t, span)
			assert.Equal(t, "req-9", span.TraceID)
			assert.Equal(t, "GET /api/v1/discover", span.Name)
		})
	}
}
