package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// storeFactory opens a fresh store for the contract tests.
type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "texts.db"))
			require.NoError(t, err)
			return s
		},
		"sqlite_memory": func(t *testing.T) Store {
			s, err := NewSQLiteStore("")
			require.NoError(t, err)
			return s
		},
		"sqlite_injected": func(t *testing.T) Store {
			db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "texts.db")+"?_journal_mode=WAL")
			require.NoError(t, err)
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = db.Close() })
			s, err := NewSQLiteStoreFromDB(db)
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore(BadgerOptions{Dir: t.TempDir()})
			require.NoError(t, err)
			return s
		},
		"badger_memory": func(t *testing.T) Store {
			s, err := NewBadgerStore(BadgerOptions{InMemory: true})
			require.NoError(t, err)
			return s
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer func() { _ = s.Close() }()

			// Given: an empty store
			recs, err := s.LoadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, recs)

			// When: saving three texts
			require.NoError(t, s.Save(ctx, TextRecord{Text: "word", Fingerprint: 60}))
			require.NoError(t, s.Save(ctx, TextRecord{Text: "bad", Fingerprint: 7}))
			require.NoError(t, s.Save(ctx, TextRecord{Text: "abd", Fingerprint: 7}))

			// Then: a duplicate is reported, not stored twice
			err = s.Save(ctx, TextRecord{Text: "word", Fingerprint: 60})
			assert.ErrorIs(t, err, ErrAlreadyExists)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			recs, err = s.LoadAll(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []TextRecord{
				{Text: "abd", Fingerprint: 7},
				{Text: "bad", Fingerprint: 7},
				{Text: "word", Fingerprint: 60},
			}, recs)
		})
	}
}

func TestStore_ConcurrentDuplicateSave(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer func() { _ = s.Close() }()

			var saved atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := s.Save(ctx, TextRecord{Text: "same", Fingerprint: 37})
					if err == nil {
						saved.Add(1)
						return
					}
					assert.ErrorIs(t, err, ErrAlreadyExists)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), saved.Load())
			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "texts.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, TextRecord{Text: "c", Fingerprint: 3}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	recs, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TextRecord{{Text: "c", Fingerprint: 3}}, recs)
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteStore_ClosedStore(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.LoadAll(context.Background())
	assert.ErrorIs(t, err, errors.ErrStorage)
	assert.Equal(t, errors.ErrCodeStoreUnavailable, errors.GetCode(err))
}

func TestSQLiteStore_InjectedDBStaysOpen(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "texts.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s, err := NewSQLiteStoreFromDB(db)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The caller still owns db.
	assert.NoError(t, db.Ping())

	var version int
	require.NoError(t, db.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestNewSQLiteStoreFromDB_Nil(t *testing.T) {
	_, err := NewSQLiteStoreFromDB(nil)
	assert.Error(t, err)
}

func TestSQLiteStore_CorruptRow(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "texts.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s, err := NewSQLiteStoreFromDB(db)
	require.NoError(t, err)

	// Given: a row whose fingerprint is not an integer
	_, err = db.Exec("INSERT INTO texts (text, fingerprint) VALUES ('abc', 'xyz')")
	require.NoError(t, err)

	// Then: loading fails as corrupt storage
	_, err = s.LoadAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreCorrupt, errors.GetCode(err))
	assert.True(t, errors.IsFatal(err))
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerStore(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, TextRecord{Text: "dd", Fingerprint: 8}))
	require.NoError(t, s.Close())

	reopened, err := NewBadgerStore(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	recs, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TextRecord{{Text: "dd", Fingerprint: 8}}, recs)
}

func TestNewBadgerStore_RequiresDir(t *testing.T) {
	_, err := NewBadgerStore(BadgerOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreUnavailable, errors.GetCode(err))
}

func TestMemoryStore_Seed(t *testing.T) {
	s := NewMemoryStore(TextRecord{Text: "c", Fingerprint: 3})

	recs, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TextRecord{{Text: "c", Fingerprint: 3}}, recs)
}
