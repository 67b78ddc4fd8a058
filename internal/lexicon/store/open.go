package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/sqlite"
)

// Handle is an opened store together with its connection lifecycle.
type Handle struct {
	*Store
	close       func() error
	isTransient func(error) bool
}

// Open connects to the backend selected by cfg.Driver. readOnly overrides
// cfg.ReadOnly for SQLite, so maintenance commands can write to a database
// the service only reads.
func Open(cfg config.StoreConfig, pg config.PostgresConfig, readOnly bool) (*Handle, error) {
	switch cfg.Driver {
	case "", "sqlite":
		open := sqlite.Open
		if readOnly {
			open = sqlite.OpenReadOnly
		}
		c, err := open(cfg.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("dictionary store opened",
			"driver", sqlite.DriverName(), "build", sqlite.DriverType(),
			"path", cfg.Path, "read_only", readOnly)
		return &Handle{Store: New(c.DB, DialectSQLite), close: c.Close, isTransient: sqlite.IsTransient}, nil
	case "postgres":
		c, err := postgres.New(pg)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: New(c.DB, DialectPostgres), close: c.Close, isTransient: postgres.IsTransient}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Close releases the connection pool.
func (h *Handle) Close() error {
	return h.close()
}

// IsTransient reports whether a driver error may clear on retry.
func (h *Handle) IsTransient(err error) bool {
	return h.isTransient(err)
}

// Resilient wraps the store in a circuit breaker and retries configured by
// d. onState, if set, observes breaker transitions.
func (h *Handle) Resilient(d config.DiscoveryConfig, onState func(name string, to resilience.State)) *Resilient {
	return NewResilient(h.Store,
		resilience.CircuitBreakerConfig{
			FailureThreshold: d.BreakerFailures,
			ResetTimeout:     d.BreakerTimeout,
			OnStateChange:    onState,
		},
		resilience.RetryConfig{
			MaxAttempts:    d.MaxRetries + 1,
			InitialDelay:   50 * time.Millisecond,
			MaxDelay:       500 * time.Millisecond,
			Multiplier:     2,
			JitterFraction: 0.2,
		},
		h.IsTransient,
	)
}
