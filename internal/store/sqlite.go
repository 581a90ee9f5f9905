package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Aman-CERP/nearmatch/internal/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// schemaVersion is bumped whenever the texts table changes shape.
const schemaVersion = 1

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	owned  bool
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
// An empty path opens an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.StorageError(errors.ErrCodeStoreUnavailable,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.StorageError(errors.ErrCodeStoreUnavailable, "failed to open database", err)
	}

	// Single writer; also keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.StorageError(errors.ErrCodeStoreUnavailable, "failed to set pragma", err)
		}
	}

	s, err := newSQLiteStore(db, path)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStoreFromDB wraps an already opened database.
// The caller keeps ownership of db; Close does not close it.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.StorageError(errors.ErrCodeStoreUnavailable, "database connection is required", nil)
	}
	return newSQLiteStore(db, "")
}

func newSQLiteStore(db *sql.DB, path string) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS texts (
		text TEXT PRIMARY KEY,
		fingerprint INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.StorageError(errors.ErrCodeStoreUnavailable, "failed to create schema", err)
	}
	if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return errors.StorageError(errors.ErrCodeStoreUnavailable, "failed to record schema version", err)
	}
	return nil
}

// LoadAll returns every stored record ordered by text.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]TextRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	rows, err := s.db.QueryContext(ctx, "SELECT text, fingerprint FROM texts ORDER BY text")
	if err != nil {
		return nil, errors.StorageError(errors.ErrCodeStoreRead, "failed to query texts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TextRecord
	for rows.Next() {
		var rec TextRecord
		if err := rows.Scan(&rec.Text, &rec.Fingerprint); err != nil {
			return nil, errors.StorageError(errors.ErrCodeStoreCorrupt, "failed to scan text row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.ErrCodeStoreRead, "failed to iterate texts", err)
	}
	return out, nil
}

// Save inserts rec, reporting ErrAlreadyExists when the text is present.
func (s *SQLiteStore) Save(ctx context.Context, rec TextRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO texts (text, fingerprint) VALUES (?, ?) ON CONFLICT(text) DO NOTHING",
		rec.Text, rec.Fingerprint)
	if err != nil {
		return errors.StorageError(errors.ErrCodeStoreWrite, "failed to insert text", err).
			WithDetail("text", rec.Text)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageError(errors.ErrCodeStoreWrite, "failed to read insert result", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Count returns the number of stored texts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed()
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM texts").Scan(&n); err != nil {
		return 0, errors.StorageError(errors.ErrCodeStoreRead, "failed to count texts", err)
	}
	return n, nil
}

// Path returns the database path, empty for in-memory or injected databases.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database if this store opened it.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func errClosed() error {
	return errors.StorageError(errors.ErrCodeStoreUnavailable, "store is closed", nil)
}
