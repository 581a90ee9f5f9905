package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// lockFileName is created inside the data directory.
const lockFileName = ".nearmatch.lock"

// DirLock gives one process exclusive use of a data directory.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for dir. The lock file is <dir>/.nearmatch.lock.
func NewDirLock(dir string) *DirLock {
	lockPath := filepath.Join(dir, lockFileName)
	return &DirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking.
// It fails with ERR_206_STORE_LOCKED when another process holds it.
func (l *DirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.StorageError(errors.ErrCodeStoreUnavailable,
			fmt.Sprintf("failed to create data directory %s", filepath.Dir(l.path)), err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return errors.StorageError(errors.ErrCodeStoreLocked, "failed to acquire data directory lock", err)
	}
	if !acquired {
		return errors.StorageError(errors.ErrCodeStoreLocked,
			fmt.Sprintf("data directory %s is in use by another process", filepath.Dir(l.path)), nil).
			WithSuggestion("Stop the running server or daemon, or point store.path elsewhere")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}

// IsLocked reports whether this DirLock holds the lock.
func (l *DirLock) IsLocked() bool {
	return l.locked
}
