// Package snapshot persists periodic analytics snapshots in the dictionary
// database, so usage statistics survive restarts.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

const (
	sqliteTable = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    data        TEXT NOT NULL,
    captured_at TIMESTAMP NOT NULL
)`
	postgresTable = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        TEXT NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL
)`
)

// Store reads and writes the analytics_snapshots table.
type Store struct {
	db      *sql.DB
	dialect store.Dialect
	logger  *slog.Logger
}

func NewStore(db *sql.DB, dialect store.Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger.WithComponent("analytics-snapshot"),
	}
}

// Init creates the snapshot table if needed.
func (s *Store) Init(ctx context.Context) error {
	ddl := sqliteTable
	if s.dialect == store.DialectPostgres {
		ddl = postgresTable
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

func (s *Store) rebind(q string) string {
	if s.dialect == store.DialectPostgres {
		return store.Rebind(q)
	}
	return q
}

// Save persists a stats snapshot.
func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO analytics_snapshots (data, captured_at) VALUES (?, ?)`),
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_lookups", stats.TotalLookups)
	return nil
}

// Latest loads the most recent snapshot. It returns nil, nil if there is
// none yet.
func (s *Store) Latest(ctx context.Context) (*analytics.AggregatedStats, error) {
	snaps, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// List returns the last limit snapshots, newest first. Corrupt rows are
// skipped.
func (s *Store) List(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT data FROM analytics_snapshots ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.AggregatedStats
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal([]byte(data), &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return snapshots, nil
}

// StartPeriodicSave snapshots agg every interval until ctx is done, then
// once more.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Save(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.Save(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
