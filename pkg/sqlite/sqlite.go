// Package sqlite opens the dictionary database shipped with the application.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite (driver name "sqlite")
//   - -tags cgo_sqlite with CGO_ENABLED=1: mattn/go-sqlite3 (driver name "sqlite3")
//
// Use Open or OpenReadOnly instead of sql.Open so the driver matching the
// build is picked.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DriverName returns the database/sql driver name for this build.
func DriverName() string {
	return driverName
}

// DriverType returns "purego" or "cgo".
func DriverType() string {
	return driverType
}

// Client wraps an open SQLite database.
type Client struct {
	DB   *sql.DB
	path string
}

// Open opens (creating if needed) a read-write database at path.
func Open(path string) (*Client, error) {
	return open(path, "file:"+path+"?"+busyTimeoutParam)
}

// OpenReadOnly opens an existing database at path in read-only mode.
func OpenReadOnly(path string) (*Client, error) {
	return open(path, "file:"+path+"?mode=ro&"+busyTimeoutParam)
}

func open(path, dsn string) (*Client, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %s: %w", path, err)
	}
	return &Client{DB: db, path: path}, nil
}

// Path returns the database file path.
func (c *Client) Path() string {
	return c.path
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsTransient reports whether err is a lock contention error worth retrying.
// Both drivers report SQLITE_BUSY and SQLITE_LOCKED through their message,
// but with different error types.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database table is locked")
}
