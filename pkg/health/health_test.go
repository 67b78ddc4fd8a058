package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{"store": Static(StatusUp, "")}, StatusUp},
		{"degraded", map[string]Check{
			"store": Static(StatusUp, ""),
			"redis": Static(StatusDegraded, "not configured"),
		}, StatusDegraded},
		{"down wins", map[string]Check{
			"store": Static(StatusDown, "closed"),
			"redis": Static(StatusDegraded, ""),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestPingCheck(t *testing.T) {
	t.Parallel()

	ok := PingCheck(func(context.Context) error { return nil }, StatusDown)
	assert.Equal(t, StatusUp, ok(context.Background()).Status)

	bad := PingCheck(func(context.Context) error { return errors.New("connection refused") }, StatusDegraded)
	got := bad(context.Background())
	assert.Equal(t, StatusDegraded, got.Status)
	assert.Equal(t, "connection refused", got.Message)
}

func TestBreakerCheck(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker("store", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	check := BreakerCheck(cb)
	assert.Equal(t, StatusUp, check(context.Background()).Status)

	_ = cb.Execute(func() error { return errors.New("boom") })
	got := check(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.Equal(t, "circuit open", got.Message)
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()

	c := NewChecker()
	c.Register("redis", Static(StatusDegraded, "not configured"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "not configured", report.Components["redis"].Message)

	c.Register("store", Static(StatusDown, "closed"))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
