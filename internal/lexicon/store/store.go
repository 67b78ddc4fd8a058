// Package store reads and indexes the dictionary database. One SQL
// implementation serves both SQLite (the shipped dictionary.db) and
// PostgreSQL; queries are written with ? placeholders and rebound for
// PostgreSQL.
//
// Lookups compare diacritic-stripped keys held in the root_plain and
// word_plain columns. Init adds them to databases from the data build and
// fills root_plain for every root; the index builder fills word_plain. Rows
// inserted through this package get both at insert time.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/normalize"
	apperrors "github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/errors"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Dialect names the SQL flavour of the backing database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Reader is the read-only surface the discovery engine consumes.
type Reader interface {
	Dictionaries(ctx context.Context) ([]Dictionary, error)
	FindIndexedWords(ctx context.Context, key string) ([]IndexedWord, error)
	FindRoots(ctx context.Context, key string, kind Kind) ([]Root, error)
	FindRootsContaining(ctx context.Context, key string, kind Kind) ([]Root, error)
	GetRoot(ctx context.Context, dictionaryName, rootKey string) (*Root, error)
}

// Store implements Reader and the index-maintenance operations on a
// database/sql handle.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ Reader = (*Store)(nil)

// New wraps an open database handle of the given dialect.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "store", "dialect", string(dialect)),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL flavour of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Init creates the schema if it does not exist and adds the normalized key
// columns to databases built before they existed.
func (s *Store) Init(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range splitStatements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement %q: %w", firstLine(stmt), err)
		}
	}
	for _, col := range []struct{ table, column, def string }{
		{"dictionaries", "description", "TEXT NOT NULL DEFAULT ''"},
		{"dictionaries", "indexing_pattern", "TEXT NOT NULL DEFAULT '" + string(PatternRootSimple) + "'"},
		{"dictionaries", "type", "TEXT NOT NULL DEFAULT '" + string(KindClassical) + "'"},
		{"roots", "root_plain", "TEXT"},
		{"words", "word_plain", "TEXT"},
	} {
		if err := s.ensureColumn(ctx, col.table, col.column, col.def); err != nil {
			return err
		}
	}
	if _, err := s.FillRootKeys(ctx, 0); err != nil {
		return err
	}
	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_roots_root_plain ON roots(root_plain)",
		"CREATE INDEX IF NOT EXISTS idx_words_word_plain ON words(word_plain)",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	s.logger.Info("schema ready")
	return nil
}

// ensureColumn adds column to table when a database built by an older data
// build lacks it.
func (s *Store) ensureColumn(ctx context.Context, table, column, def string) error {
	probe := fmt.Sprintf("SELECT %s FROM %s LIMIT 0", column, table)
	rows, err := s.db.QueryContext(ctx, probe)
	if err == nil {
		return rows.Close()
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def)
	if _, err := s.db.ExecContext(ctx, alter); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	s.logger.Info("added missing column", "table", table, "column", column)
	return nil
}

func (s *Store) Dictionaries(ctx context.Context) ([]Dictionary, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, name, description, indexing_pattern, type FROM dictionaries ORDER BY id`))
	if err != nil {
		return nil, fmt.Errorf("listing dictionaries: %w", err)
	}
	defer rows.Close()

	var out []Dictionary
	for rows.Next() {
		var d Dictionary
		var kind string
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.IndexingPattern, &kind); err != nil {
			return nil, fmt.Errorf("scanning dictionary: %w", err)
		}
		d.Kind = Kind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

const wordColumns = `w.id, w.root_id, r.root, d.name, w.word, w.first_position, w.all_positions`

// FindIndexedWords returns the indexed words whose stripped form equals key.
func (s *Store) FindIndexedWords(ctx context.Context, key string) ([]IndexedWord, error) {
	if key == "" {
		return nil, nil
	}
	q := `SELECT ` + wordColumns + `
		FROM words w
		JOIN roots r ON r.id = w.root_id
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE w.word_plain = ?
		ORDER BY d.id, r.id, w.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), key)
	if err != nil {
		return nil, fmt.Errorf("finding indexed words for %q: %w", key, err)
	}
	defer rows.Close()
	return scanWords(rows)
}

func scanWords(rows *sql.Rows) ([]IndexedWord, error) {
	var out []IndexedWord
	for rows.Next() {
		var (
			w         IndexedWord
			first     sql.NullInt64
			positions sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.RootID, &w.Root, &w.DictionaryName, &w.Word, &first, &positions); err != nil {
			return nil, fmt.Errorf("scanning word: %w", err)
		}
		if first.Valid && first.Int64 >= 0 {
			v := int(first.Int64)
			w.FirstPosition = &v
		}
		all, err := decodePositions(positions.String)
		if err != nil {
			return nil, err
		}
		w.AllPositions = all
		out = append(out, w)
	}
	return out, rows.Err()
}

const rootColumns = `r.id, r.dictionary_id, d.name, d.type, r.root, r.definition, r.first_word_position`

// FindRoots returns the roots whose stripped form equals key, restricted to
// dictionaries of kind when kind is not empty.
func (s *Store) FindRoots(ctx context.Context, key string, kind Kind) ([]Root, error) {
	if key == "" {
		return nil, nil
	}
	q := `SELECT ` + rootColumns + `
		FROM roots r
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE r.root_plain = ?`
	args := []any{key}
	if kind != "" {
		q += ` AND d.type = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY d.id, r.id`
	return s.queryRoots(ctx, q, args...)
}

// FindRootsContaining returns the roots whose stripped form contains key.
func (s *Store) FindRootsContaining(ctx context.Context, key string, kind Kind) ([]Root, error) {
	if key == "" {
		return nil, nil
	}
	q := `SELECT ` + rootColumns + `
		FROM roots r
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE r.root_plain LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(key) + "%"}
	if kind != "" {
		q += ` AND d.type = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY d.id, r.id`
	return s.queryRoots(ctx, q, args...)
}

// GetRoot returns the root of dictionaryName whose stripped form equals the
// stripped rootKey.
func (s *Store) GetRoot(ctx context.Context, dictionaryName, rootKey string) (*Root, error) {
	key := normalize.Key(rootKey)
	if key == "" || strings.TrimSpace(dictionaryName) == "" {
		return nil, apperrors.ErrRootNotFound
	}
	q := `SELECT ` + rootColumns + `
		FROM roots r
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE d.name = ? AND r.root_plain = ?
		ORDER BY r.id
		LIMIT 1`
	roots, err := s.queryRoots(ctx, q, strings.TrimSpace(dictionaryName), key)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%s in %s: %w", rootKey, dictionaryName, apperrors.ErrRootNotFound)
	}
	return &roots[0], nil
}

func (s *Store) queryRoots(ctx context.Context, q string, args ...any) ([]Root, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("querying roots: %w", err)
	}
	defer rows.Close()

	var out []Root
	for rows.Next() {
		var (
			r     Root
			kind  string
			first sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.DictionaryID, &r.DictionaryName, &kind, &r.Root, &r.Definition, &first); err != nil {
			return nil, fmt.Errorf("scanning root: %w", err)
		}
		r.Kind = Kind(kind)
		if first.Valid && first.Int64 >= 0 {
			v := int(first.Int64)
			r.FirstWordPosition = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RootsWithWords returns the ids of roots that have at least one indexed
// word, for one dictionary or for all when dictionaryID is 0.
func (s *Store) RootsWithWords(ctx context.Context, dictionaryID int64) ([]int64, error) {
	q := `SELECT DISTINCT r.id FROM roots r JOIN words w ON w.root_id = r.id`
	var args []any
	if dictionaryID != 0 {
		q += ` WHERE r.dictionary_id = ?`
		args = append(args, dictionaryID)
	}
	q += ` ORDER BY r.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("listing roots with words: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning root id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FillRootKeys sets root_plain on every root that lacks it, for one
// dictionary or for all when dictionaryID is 0. Databases from the data build
// carry many roots with a definition and no indexed words; the word-driven
// rebuild never visits those. It returns the number of roots updated.
func (s *Store) FillRootKeys(ctx context.Context, dictionaryID int64) (int64, error) {
	q := `SELECT id, root FROM roots WHERE root_plain IS NULL`
	var args []any
	if dictionaryID != 0 {
		q += ` AND dictionary_id = ?`
		args = append(args, dictionaryID)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("listing roots without keys: %w", err)
	}
	type pending struct {
		id  int64
		key string
	}
	var todo []pending
	for rows.Next() {
		var (
			id   int64
			root string
		)
		if err := rows.Scan(&id, &root); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning root: %w", err)
		}
		todo = append(todo, pending{id: id, key: normalize.Key(root)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("listing roots without keys: %w", err)
	}
	rows.Close()
	if len(todo) == 0 {
		return 0, nil
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(`UPDATE roots SET root_plain = ? WHERE id = ?`))
		if err != nil {
			return fmt.Errorf("preparing root key update: %w", err)
		}
		defer stmt.Close()
		for _, p := range todo {
			if _, err := stmt.ExecContext(ctx, p.key, p.id); err != nil {
				return fmt.Errorf("updating root %d: %w", p.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("filled root keys", "roots", len(todo))
	return int64(len(todo)), nil
}

// RootWords loads a root and its indexed words.
func (s *Store) RootWords(ctx context.Context, rootID int64) (*Root, []IndexedWord, error) {
	roots, err := s.queryRoots(ctx, `SELECT `+rootColumns+`
		FROM roots r
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE r.id = ?`, rootID)
	if err != nil {
		return nil, nil, err
	}
	if len(roots) == 0 {
		return nil, nil, fmt.Errorf("root %d: %w", rootID, apperrors.ErrRootNotFound)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+wordColumns+`
		FROM words w
		JOIN roots r ON r.id = w.root_id
		JOIN dictionaries d ON d.id = r.dictionary_id
		WHERE w.root_id = ?
		ORDER BY w.id`), rootID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading words of root %d: %w", rootID, err)
	}
	defer rows.Close()
	words, err := scanWords(rows)
	if err != nil {
		return nil, nil, err
	}
	return &roots[0], words, nil
}

// UpdateWordPositions writes a recomputed root index in one transaction.
func (s *Store) UpdateWordPositions(ctx context.Context, u RootUpdate) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		first := int64(noPosition)
		for _, w := range u.Words {
			if p := firstPosition(w.AllPositions); p != noPosition && (first == noPosition || p < first) {
				first = p
			}
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`UPDATE roots SET root_plain = ?, first_word_position = ? WHERE id = ?`),
			u.RootPlain, first, u.RootID); err != nil {
			return fmt.Errorf("updating root %d: %w", u.RootID, err)
		}

		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`UPDATE words SET word_plain = ?, first_position = ?, all_positions = ? WHERE id = ?`))
		if err != nil {
			return fmt.Errorf("preparing word update: %w", err)
		}
		defer stmt.Close()
		for _, w := range u.Words {
			if _, err := stmt.ExecContext(ctx, w.WordPlain, firstPosition(w.AllPositions), encodePositions(w.AllPositions), w.ID); err != nil {
				return fmt.Errorf("updating word %d: %w", w.ID, err)
			}
		}
		return nil
	})
}

// InsertDictionary adds a dictionary and returns its id.
func (s *Store) InsertDictionary(ctx context.Context, d Dictionary) (int64, error) {
	if d.IndexingPattern == "" {
		d.IndexingPattern = PatternRootSimple
	}
	if d.Kind == "" {
		d.Kind = KindClassical
	}
	return s.insert(ctx,
		`INSERT INTO dictionaries (name, description, indexing_pattern, type) VALUES (?, ?, ?, ?) RETURNING id`,
		d.Name, d.Description, d.IndexingPattern, string(d.Kind))
}

// InsertRoot adds a root and returns its id. root_plain is derived from the
// root text.
func (s *Store) InsertRoot(ctx context.Context, r Root) (int64, error) {
	return s.insert(ctx,
		`INSERT INTO roots (dictionary_id, root, root_plain, definition, first_word_position) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		r.DictionaryID, r.Root, normalize.Key(r.Root), r.Definition, noPosition)
}

// InsertWord adds an indexed word and returns its id.
func (s *Store) InsertWord(ctx context.Context, w IndexedWord) (int64, error) {
	return s.insert(ctx,
		`INSERT INTO words (root_id, word, word_plain, first_position, all_positions) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		w.RootID, w.Word, normalize.Key(w.Word), firstPosition(w.AllPositions), encodePositions(w.AllPositions))
}

func (s *Store) insert(ctx context.Context, q string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return id, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// noPosition marks a root or word without indexed occurrences, as the data
// build does.
const noPosition = -1

func firstPosition(positions []int) int64 {
	if len(positions) == 0 {
		return noPosition
	}
	return int64(positions[0])
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL. Question
// marks inside single-quoted literals are left alone.
func (s *Store) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	return Rebind(q)
}

// Rebind rewrites ? placeholders to PostgreSQL's numbered form.
func Rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	inQuote := false
	for _, r := range q {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
