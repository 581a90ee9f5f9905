package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		want    any
	}{
		{"default is sqlite", "", &SQLiteStore{}},
		{"sqlite", BackendSQLite, &SQLiteStore{}},
		{"badger", BackendBadger, &BadgerStore{}},
		{"memory", BackendMemory, &MemoryStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(Options{Backend: tt.backend, DataDir: t.TempDir()})
			require.NoError(t, err)
			defer func() { _ = s.Close() }()

			assert.IsType(t, tt.want, s)
			_, err = s.Count(context.Background())
			assert.NoError(t, err)
		})
	}
}

func TestOpen_InMemoryWhenNoDataDir(t *testing.T) {
	for _, backend := range []Backend{BackendSQLite, BackendBadger} {
		t.Run(string(backend), func(t *testing.T) {
			s, err := Open(Options{Backend: backend})
			require.NoError(t, err)
			defer func() { _ = s.Close() }()

			require.NoError(t, s.Save(context.Background(), TextRecord{Text: "a", Fingerprint: 1}))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "postgres"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	b, err = ParseBackend("badger")
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, b)

	_, err = ParseBackend("bolt")
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "texts.db"), Path("/data", BackendSQLite))
	assert.Equal(t, filepath.Join("/data", "texts.badger"), Path("/data", BackendBadger))
	assert.Empty(t, Path("/data", BackendMemory))
	assert.Empty(t, Path("", BackendSQLite))
}
