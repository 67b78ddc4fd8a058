package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store/storetest"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictionary.db")
	c, err := sqlite.Open(path)
	require.NoError(t, err)
	s := store.New(c.DB, store.DialectSQLite)
	require.NoError(t, s.Init(context.Background()))
	storetest.Seed(t, s)
	require.NoError(t, c.Close())
	return path
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	out, err := run(t, "init", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")

	_, err = run(t, "init", "--db", path)
	assert.NoError(t, err, "init is idempotent")
}

func TestReindexAndDiscover(t *testing.T) {
	path := seededDB(t)

	out, err := run(t, "reindex", "--db", path, "--workers", "2")
	require.NoError(t, err)
	var stats indexer.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 3, stats.Roots)

	out, err = run(t, "discover", "--db", path, "--root", "كتب", "كِتاب")
	require.NoError(t, err)
	var res struct {
		Indexed []json.RawMessage `json:"indexed"`
		Roots   []json.RawMessage `json:"roots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Indexed, 2)
	assert.Len(t, res.Roots, 4)

	out, err = run(t, "discover", "--db", path, "--digest", "قلم")
	require.NoError(t, err)
	assert.Contains(t, out, "Word: قلم")
}

func TestDefinition(t *testing.T) {
	path := seededDB(t)

	out, err := run(t, "definition", "--db", path, storetest.Lisan, "كتب")
	require.NoError(t, err)
	assert.Contains(t, out, `"found": true`)
	assert.Contains(t, out, "الكِتابُ معروفٌ")

	_, err = run(t, "definition", "--db", path, storetest.Lisan, "سير")
	assert.ErrorContains(t, err, "not found")
}

func TestScan(t *testing.T) {
	file := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(file, []byte("ذَهَبَ الرجلُ وذَهَبَ أخوه"), 0o644))

	out, err := run(t, "scan", "--file", file, "--word", "ذهب")
	require.NoError(t, err)
	assert.Contains(t, out, "2 occurrences, 2 main")
	assert.Contains(t, out, "14\t21\tmain")

	_, err = run(t, "scan", "--file", file)
	assert.Error(t, err)
}
