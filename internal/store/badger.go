package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// textKeyPrefix prefixes every text key: "text:<text>".
const textKeyPrefix = "text:"

// badgerValue is the msgpack payload stored under a text key.
type badgerValue struct {
	Text        string `msgpack:"t"`
	Fingerprint int    `msgpack:"f"`
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is the directory for Badger data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs Badger without disk persistence.
	InMemory bool

	// CacheMB bounds the block cache. Zero keeps Badger's default.
	CacheMB int
}

// BadgerStore implements Store on a Badger key-value directory.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (creating if needed) a Badger store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.StorageError(errors.ErrCodeStoreUnavailable, "badger directory is required for on-disk mode", nil)
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if opts.CacheMB > 0 {
		dbOpts = dbOpts.WithBlockCacheSize(int64(opts.CacheMB) << 20)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.StorageError(errors.ErrCodeStoreUnavailable,
			fmt.Sprintf("failed to open badger store at %s", opts.Dir), err)
	}
	return &BadgerStore{db: db}, nil
}

func textKey(text string) []byte {
	return []byte(textKeyPrefix + text)
}

// LoadAll returns every stored record in key order.
func (b *BadgerStore) LoadAll(_ context.Context) ([]TextRecord, error) {
	var out []TextRecord
	prefix := []byte(textKeyPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return errors.StorageError(errors.ErrCodeStoreRead, "failed to read value", err)
			}
			var v badgerValue
			if err := msgpack.Unmarshal(raw, &v); err != nil {
				return errors.StorageError(errors.ErrCodeStoreCorrupt, "failed to decode value", err).
					WithDetail("key", string(item.Key()))
			}
			out = append(out, TextRecord{Text: v.Text, Fingerprint: v.Fingerprint})
		}
		return nil
	})
	if err != nil {
		var ae *errors.AppError
		if stderrors.As(err, &ae) {
			return nil, err
		}
		return nil, errors.StorageError(errors.ErrCodeStoreRead, "failed to iterate texts", err)
	}
	return out, nil
}

// Save stores rec unless its text is already present.
func (b *BadgerStore) Save(_ context.Context, rec TextRecord) error {
	payload, err := msgpack.Marshal(badgerValue{Text: rec.Text, Fingerprint: rec.Fingerprint})
	if err != nil {
		return errors.StorageError(errors.ErrCodeStoreWrite, "failed to encode value", err)
	}

	key := textKey(rec.Text)
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return ErrAlreadyExists
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, payload)
	})
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists
	case stderrors.Is(err, badger.ErrConflict):
		// A concurrent transaction wrote the same key first.
		return ErrAlreadyExists
	default:
		return errors.StorageError(errors.ErrCodeStoreWrite, "failed to save text", err).
			WithDetail("text", rec.Text)
	}
}

// Count returns the number of stored texts.
func (b *BadgerStore) Count(_ context.Context) (int, error) {
	n := 0
	prefix := []byte(textKeyPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.StorageError(errors.ErrCodeStoreRead, "failed to count texts", err)
	}
	return n, nil
}

// Close closes the Badger database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// badgerLogger routes Badger's warnings and errors to slog.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{}) {
	slog.Error("badger_error", slog.String("message", fmt.Sprintf(f, v...)))
}

func (badgerLogger) Warningf(f string, v ...interface{}) {
	slog.Warn("badger_warning", slog.String("message", fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
