package store

import (
	"path/filepath"
)

// Options selects and configures a Store backend.
type Options struct {
	// Backend is the implementation to open.
	Backend Backend

	// DataDir holds the store files. Empty opens the backend in memory.
	DataDir string

	// CacheMB bounds backend caches where supported.
	CacheMB int
}

// Open creates the Store described by opts.
//
// Layout under DataDir:
//   - sqlite: texts.db
//   - badger: texts.badger/
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStore(Path(opts.DataDir, BackendSQLite))

	case BackendBadger:
		return NewBadgerStore(BadgerOptions{
			Dir:      Path(opts.DataDir, BackendBadger),
			InMemory: opts.DataDir == "",
			CacheMB:  opts.CacheMB,
		})

	case BackendMemory:
		return NewMemoryStore(), nil

	default:
		_, err := ParseBackend(string(opts.Backend))
		return nil, err
	}
}

// Path returns where backend keeps its data under dataDir.
// It returns an empty string for in-memory configurations.
func Path(dataDir string, backend Backend) string {
	if dataDir == "" {
		return ""
	}
	switch backend {
	case BackendBadger:
		return filepath.Join(dataDir, "texts.badger")
	case BackendMemory:
		return ""
	default:
		return filepath.Join(dataDir, "texts.db")
	}
}
