package store_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store/storetest"
	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/sqlite"
)

func TestDictionaries(t *testing.T) {
	s := storetest.Open(t)
	storetest.Seed(t, s)

	dicts, err := s.Dictionaries(context.Background())
	require.NoError(t, err)
	require.Len(t, dicts, 5)
	assert.Equal(t, storetest.Lisan, dicts[0].Name)
	assert.Equal(t, store.KindClassical, dicts[0].Kind)
	assert.Equal(t, store.KindDigitized, dicts[4].Kind)
	assert.Equal(t, store.PatternRootSpaced, dicts[1].IndexingPattern)
}

func TestFindIndexedWords(t *testing.T) {
	s := storetest.Open(t)
	storetest.Seed(t, s)
	ctx := context.Background()

	words, err := s.FindIndexedWords(ctx, "الكتاب")
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "الكِتابُ", words[0].Word)
	assert.Equal(t, "كتب", words[0].Root)
	assert.Equal(t, storetest.Lisan, words[0].DictionaryName)
	assert.Equal(t, storetest.Sihah, words[1].DictionaryName)
	assert.Empty(t, words[0].AllPositions)

	words, err = s.FindIndexedWords(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestFindRoots(t *testing.T) {
	s := storetest.Open(t)
	storetest.Seed(t, s)
	ctx := context.Background()

	roots, err := s.FindRoots(ctx, "كتب", store.KindClassical)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, storetest.Lisan, roots[0].DictionaryName)
	assert.Equal(t, storetest.KatabaDefinition, roots[0].Definition)

	roots, err = s.FindRoots(ctx, "ك ت ب", "")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, storetest.Sihah, roots[0].DictionaryName)

	roots, err = s.FindRoots(ctx, "كتابة", store.KindClassical)
	require.NoError(t, err)
	assert.Empty(t, roots, "digitized entries are filtered out")
}

func TestFindRootsContaining(t *testing.T) {
	s := storetest.Open(t)
	storetest.Seed(t, s)

	roots, err := s.FindRootsContaining(context.Background(), "كتاب", store.KindDigitized)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "علم الكتاب", roots[0].Root)
	assert.Equal(t, "كتابة", roots[1].Root)

	roots, err = s.FindRootsContaining(context.Background(), "%", "")
	require.NoError(t, err)
	assert.Empty(t, roots, "wildcards in keys are literal")
}

func TestGetRoot(t *testing.T) {
	s := storetest.Open(t)
	storetest.Seed(t, s)
	ctx := context.Background()

	r, err := s.GetRoot(ctx, storetest.Lisan, "كَتَبَ")
	require.NoError(t, err)
	assert.Equal(t, "كتب", r.Root)

	_, err = s.GetRoot(ctx, "كتب", storetest.Lisan)
	assert.ErrorIs(t, err, apperrors.ErrRootNotFound)

	_, err = s.GetRoot(ctx, "", "كتب")
	assert.ErrorIs(t, err, apperrors.ErrRootNotFound)
}

func TestRootWordsAndUpdate(t *testing.T) {
	s := storetest.Open(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	rootID := f.Roots[storetest.Lisan+"/كتب"]
	ids, err := s.RootsWithWords(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, ids, rootID)
	assert.NotContains(t, ids, f.Roots[storetest.Wasit+"/الكتاب"])

	root, words, err := s.RootWords(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, "كتب", root.Root)
	require.Len(t, words, 2)

	update := store.RootUpdate{RootID: rootID, RootPlain: "كتب"}
	for i, w := range words {
		update.Words = append(update.Words, store.WordUpdate{ID: w.ID, WordPlain: "x", AllPositions: []int{10 * (i + 1), 50}})
	}
	require.NoError(t, s.UpdateWordPositions(ctx, update))

	root, words, err = s.RootWords(ctx, rootID)
	require.NoError(t, err)
	require.NotNil(t, root.FirstWordPosition)
	assert.Equal(t, 10, *root.FirstWordPosition)
	assert.Equal(t, []int{10, 50}, words[0].AllPositions)
	require.NotNil(t, words[1].FirstPosition)
	assert.Equal(t, 20, *words[1].FirstPosition)

	_, _, err = s.RootWords(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrRootNotFound)
}

func TestInitIsIdempotent(t *testing.T) {
	s := storetest.Open(t)
	require.NoError(t, s.Init(context.Background()))
}

func TestInitUpgradesDataBuildDatabase(t *testing.T) {
	c, err := sqlite.Open(storetest.DataBuildPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	s := store.New(c.DB, store.DialectSQLite)
	require.NoError(t, s.Init(ctx))

	dicts, err := s.Dictionaries(ctx)
	require.NoError(t, err)
	require.Len(t, dicts, 1)
	assert.Equal(t, store.KindClassical, dicts[0].Kind)
	assert.Equal(t, store.PatternRootSimple, dicts[0].IndexingPattern)

	tests := []struct {
		name string
		root string
	}{
		{"indexed root", "كتب"},
		{"root without indexed words", "ذهب"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots, err := s.FindRoots(ctx, tt.root, store.KindClassical)
			require.NoError(t, err)
			require.Len(t, roots, 1)

			r, err := s.GetRoot(ctx, storetest.Lisan, tt.root)
			require.NoError(t, err)
			assert.Equal(t, roots[0].ID, r.ID)
		})
	}

	r, err := s.GetRoot(ctx, storetest.Lisan, "ذهب")
	require.NoError(t, err)
	assert.Nil(t, r.FirstWordPosition, "-1 reads as no position")

	filled, err := s.FillRootKeys(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, filled)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE a = ? AND b = ?", "WHERE a = $1 AND b = $2"},
		{`WHERE a LIKE ? ESCAPE '\' AND b = '?' AND c = ?`, `WHERE a LIKE $1 ESCAPE '\' AND b = '?' AND c = $2`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, store.Rebind(tt.in))
	}
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("LX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LX_TEST_POSTGRES_DSN not set; skipping Postgres integration test")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	ctx := context.Background()
	for _, table := range []string{"words", "roots", "dictionaries"} {
		_, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
	}

	s := store.New(db, store.DialectPostgres)
	require.NoError(t, s.Init(ctx))

	dictID, err := s.InsertDictionary(ctx, store.Dictionary{Name: storetest.Terms, Kind: store.KindDigitized})
	require.NoError(t, err)
	_, err = s.InsertRoot(ctx, store.Root{DictionaryID: dictID, Root: "علم الكتاب", Definition: "تعريف"})
	require.NoError(t, err)

	roots, err := s.FindRootsContaining(ctx, "كتاب", store.KindDigitized)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	r, err := s.GetRoot(ctx, storetest.Terms, "عِلْمُ الكتاب")
	require.NoError(t, err)
	assert.Equal(t, roots[0].ID, r.ID)
}
