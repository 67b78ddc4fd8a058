package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndInTx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.db")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.DB.ExecContext(ctx, `CREATE TABLE roots (id INTEGER PRIMARY KEY, root TEXT)`)
	require.NoError(t, err)

	require.NoError(t, c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO roots (root) VALUES (?)`, "كتب")
		return err
	}))

	errAbort := errors.New("abort")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roots (root) VALUES (?)`, "قلم"); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	var n int
	require.NoError(t, c.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM roots`).Scan(&n))
	assert.Equal(t, 1, n, "rolled back insert must not persist")
	assert.NoError(t, c.Ping(ctx))
	assert.Equal(t, path, c.Path())
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.db")
	rw, err := Open(path)
	require.NoError(t, err)
	_, err = rw.DB.Exec(`CREATE TABLE roots (id INTEGER PRIMARY KEY, root TEXT)`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.DB.Exec(`INSERT INTO roots (root) VALUES ('كتب')`)
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsTransient(errors.New("no such table: roots")))
	assert.False(t, IsTransient(nil))
}
