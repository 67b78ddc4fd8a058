//go:build !cgo_sqlite

package sqlite

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName       = "sqlite"
	driverType       = "purego"
	busyTimeoutParam = "_pragma=busy_timeout(5000)"
)
