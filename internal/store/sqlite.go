package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/dreams/internal/domain"
)

//go:embed schema.sql
var schema string

// schemaVersion is stored in PRAGMA user_version
const schemaVersion = 1

var (
	// ErrStorageUnavailable means the database could not be opened or prepared
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotInitialized is returned by every operation before Init succeeds
	ErrNotInitialized = errors.New("store not initialized")
	// ErrWrite wraps failed or aborted write transactions
	ErrWrite = errors.New("write failed")
	// ErrRead wraps failed read queries
	ErrRead = errors.New("read failed")
	// ErrNotFound is returned when no entry has the requested id
	ErrNotFound = errors.New("entry not found")
)

const entryColumns = "id, dt, title, text, tags, sent, ni"

// Store handles database operations
type Store struct {
	path string
	db   *sql.DB
}

// New returns an uninitialized Store for the database at path.
// Call Init before any other method.
func New(path string) *Store {
	return &Store{path: path}
}

// Open creates a Store and initializes it
func Open(ctx context.Context, path string) (*Store, error) {
	s := New(path)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Init opens the database and applies the schema. It is a no-op on a
// store that is already initialized.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create db dir: %w", ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("%w: open database: %w", ErrStorageUnavailable, err)
	}

	// Writes serialize on a single connection; this also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.db = db
	return nil
}

func prepare(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("execute %q: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Ready reports whether Init has succeeded
func (s *Store) Ready() bool {
	return s.db != nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// AddEntry stores a draft and returns it with its assigned id.
// It returns once the transaction has committed.
func (s *Store) AddEntry(ctx context.Context, d domain.Draft) (domain.Entry, error) {
	if s.db == nil {
		return domain.Entry{}, ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: begin: %w", ErrWrite, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entries (dt, title, text, tags, sent, ni) VALUES (?, ?, ?, ?, ?, ?)",
		d.DT, d.Title, d.Text, d.Tags, d.Sent, d.NI,
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: insert entry: %w", ErrWrite, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: entry id: %w", ErrWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: commit: %w", ErrWrite, err)
	}

	return d.WithID(id), nil
}

// GetEntry retrieves an entry by id
func (s *Store) GetEntry(ctx context.Context, id int64) (domain.Entry, error) {
	if s.db == nil {
		return domain.Entry{}, ErrNotInitialized
	}

	var e domain.Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?",
		id,
	).Scan(&e.ID, &e.DT, &e.Title, &e.Text, &e.Tags, &e.Sent, &e.NI)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: get entry: %w", ErrRead, err)
	}

	return e, nil
}

// ListEntries returns every entry, most recent dt first.
// Entries sharing a dt keep insertion order.
func (s *Store) ListEntries(ctx context.Context) ([]domain.Entry, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	return s.queryEntries(ctx, "list entries",
		"SELECT "+entryColumns+" FROM entries ORDER BY dt DESC, id ASC",
	)
}

// SearchEntries returns entries whose title, text or tags contain query,
// ignoring case, in the same order as ListEntries.
func (s *Store) SearchEntries(ctx context.Context, query string) ([]domain.Entry, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	pattern := "%" + escapeLike(query) + "%"
	return s.queryEntries(ctx, "search entries", `
		SELECT `+entryColumns+`
		FROM entries
		WHERE title LIKE ?1 ESCAPE '\' OR text LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
		ORDER BY dt DESC, id ASC
	`, pattern)
}

func (s *Store) queryEntries(ctx context.Context, op, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, op, err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.DT, &e.Title, &e.Text, &e.Tags, &e.Sent, &e.NI); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", ErrRead, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, op, err)
	}

	return entries, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
