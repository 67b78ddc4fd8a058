// Package storetest builds small SQLite dictionary databases for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/sqlite"
)

// Dictionary names used by Seed.
const (
	Lisan   = "لسان العرب"
	Sihah   = "الصحاح"
	Taj     = "تاج العروس"
	Wasit   = "المعجم الوسيط"
	Terms   = "معجم المصطلحات"
	Unknown = "معجم غير موجود"
)

// KatabaDefinition is the definition of the كتب root in Lisan.
const KatabaDefinition = "الكِتابُ معروفٌ، والجمع كُتُبٌ. كَتَبَ الشيءَ يَكْتُبُه كَتْباً وكِتاباً، " +
	"والكِتابُ أَيضاً الفَرْضُ والحُكْمُ. وكَتَبَ الكاتبُ بالقَلَمِ."

// Fixture holds the ids Seed created.
type Fixture struct {
	Dictionaries map[string]int64
	// Roots maps "dictionary/root" to the root id.
	Roots map[string]int64
	// Words maps "dictionary/root/word" to the word id.
	Words map[string]int64
}

// Open creates an empty store with the schema applied on a temp file.
func Open(t testing.TB) *store.Store {
	t.Helper()
	c, err := sqlite.Open(filepath.Join(t.TempDir(), "dictionary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	s := store.New(c.DB, store.DialectSQLite)
	require.NoError(t, s.Init(context.Background()))
	return s
}

type rootSeed struct {
	root       string
	definition string
	words      []string
}

// Seed fills s with five dictionaries covering every root-match tier.
func Seed(t testing.TB, s *store.Store) Fixture {
	t.Helper()
	ctx := context.Background()
	f := Fixture{
		Dictionaries: map[string]int64{},
		Roots:        map[string]int64{},
		Words:        map[string]int64{},
	}

	data := []struct {
		dict  store.Dictionary
		roots []rootSeed
	}{
		{
			dict: store.Dictionary{Name: Lisan, IndexingPattern: store.PatternRootSimple, Kind: store.KindClassical},
			roots: []rootSeed{
				{root: "كتب", definition: KatabaDefinition, words: []string{"الكِتابُ", "كَتَبَ"}},
				{root: "قلم", definition: "القَلَمُ الذي يُكْتَبُ به، والجمع أَقْلامٌ.", words: []string{"القَلَمُ"}},
			},
		},
		{
			dict: store.Dictionary{Name: Sihah, IndexingPattern: store.PatternRootSpaced, Kind: store.KindClassical},
			roots: []rootSeed{
				{root: "ك ت ب", definition: "كَتَبْتُ الكِتابَ كَتْباً وكِتاباً.", words: []string{"الكِتابَ"}},
			},
		},
		{
			dict: store.Dictionary{Name: Taj, IndexingPattern: store.PatternRootBracketed, Kind: store.KindClassical},
			roots: []rootSeed{
				{root: "(كتب)", definition: "الكِتابُ م، معروفٌ.", words: nil},
			},
		},
		{
			dict: store.Dictionary{Name: Wasit, IndexingPattern: store.PatternWordWithAl, Kind: store.KindClassical},
			roots: []rootSeed{
				{root: "الكتاب", definition: "الكتابُ: الصُّحُفُ المجموعة.", words: nil},
			},
		},
		{
			dict: store.Dictionary{Name: Terms, IndexingPattern: store.PatternMixed, Kind: store.KindDigitized},
			roots: []rootSeed{
				{root: "علم الكتاب", definition: "علمٌ يبحث في صناعة الكتاب.", words: nil},
				{root: "كتابة", definition: "الكتابة: تدوين الكلام.", words: nil},
			},
		},
	}

	for _, d := range data {
		dictID, err := s.InsertDictionary(ctx, d.dict)
		require.NoError(t, err)
		f.Dictionaries[d.dict.Name] = dictID
		for _, r := range d.roots {
			rootID, err := s.InsertRoot(ctx, store.Root{DictionaryID: dictID, Root: r.root, Definition: r.definition})
			require.NoError(t, err)
			f.Roots[d.dict.Name+"/"+r.root] = rootID
			for _, w := range r.words {
				wordID, err := s.InsertWord(ctx, store.IndexedWord{RootID: rootID, Word: w})
				require.NoError(t, err)
				f.Words[d.dict.Name+"/"+r.root+"/"+w] = wordID
			}
		}
	}
	return f
}

// DataBuildPath writes a database laid out the way the offline data build
// produces dictionary.db: no normalized key columns, no dictionary metadata,
// and roots without indexed words stored with first_word_position -1. It
// holds Lisan with the indexed root كتب and the unindexed root ذهب.
func DataBuildPath(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictionary.db")
	c, err := sqlite.Open(path)
	require.NoError(t, err)
	defer c.Close()

	stmts := []string{
		`CREATE TABLE dictionaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE roots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dictionary_id INTEGER NOT NULL,
			root TEXT NOT NULL,
			definition TEXT NOT NULL,
			first_word_position INTEGER NOT NULL,
			FOREIGN KEY (dictionary_id) REFERENCES dictionaries(id)
		)`,
		`CREATE TABLE words (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root_id INTEGER NOT NULL,
			word TEXT NOT NULL,
			first_position INTEGER NOT NULL,
			all_positions TEXT NOT NULL,
			FOREIGN KEY (root_id) REFERENCES roots(id)
		)`,
		`CREATE INDEX idx_roots_dictionary ON roots(dictionary_id)`,
		`CREATE INDEX idx_words_root ON words(root_id)`,
	}
	for _, stmt := range stmts {
		_, err := c.DB.Exec(stmt)
		require.NoError(t, err)
	}

	_, err = c.DB.Exec(`INSERT INTO dictionaries (id, name) VALUES (1, ?)`, Lisan)
	require.NoError(t, err)
	_, err = c.DB.Exec(`INSERT INTO roots (id, dictionary_id, root, definition, first_word_position) VALUES (1, 1, ?, ?, 0)`,
		"كتب", KatabaDefinition)
	require.NoError(t, err)
	_, err = c.DB.Exec(`INSERT INTO words (root_id, word, first_position, all_positions) VALUES (1, ?, 0, '[0, 75]')`, "الكِتابُ")
	require.NoError(t, err)
	_, err = c.DB.Exec(`INSERT INTO roots (id, dictionary_id, root, definition, first_word_position) VALUES (2, 1, ?, ?, -1)`,
		"ذهب", "الذَّهَبُ معروفٌ، وذَهَبَ يَذْهَبُ ذَهاباً.")
	require.NoError(t, err)
	return path
}
