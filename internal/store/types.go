// Package store persists analyzed texts.
//
// A Store is the durable side of the cache: it is read in full once at
// startup and then appended to one record at a time. Records are never
// updated or removed.
package store

import (
	"context"

	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
)

// TextRecord is one stored text and its fingerprint.
type TextRecord = fingerprint.Record

// ErrAlreadyExists is returned by Save when the text is already stored.
var ErrAlreadyExists = errors.New(errors.ErrCodeStoreDuplicate, "text already stored", nil)

// Store is the persistence contract used by the cache.
type Store interface {
	// LoadAll returns every stored record.
	LoadAll(ctx context.Context) ([]TextRecord, error)

	// Save stores rec. It returns ErrAlreadyExists when rec.Text is present.
	Save(ctx context.Context, rec TextRecord) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	// BackendSQLite stores texts in a SQLite database (default).
	BackendSQLite Backend = "sqlite"

	// BackendBadger stores texts in a Badger key-value directory.
	BackendBadger Backend = "badger"

	// BackendMemory keeps texts in process memory only.
	BackendMemory Backend = "memory"
)

// ParseBackend maps a configuration value to a Backend.
// An empty value selects BackendSQLite.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendBadger:
		return BackendBadger, nil
	case BackendMemory:
		return BackendMemory, nil
	default:
		return "", errors.New(errors.ErrCodeConfigInvalid,
			"unknown store backend: "+s, nil).
			WithSuggestion("Valid backends are sqlite, badger and memory")
	}
}
