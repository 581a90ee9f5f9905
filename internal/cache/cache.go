// Package cache keeps the in-memory indices in step with the durable store.
//
// A Cache owns one generation of indices: a lexical index and a value index
// that are always published together. WarmUp builds a fresh generation from
// the store and swaps it in. Record persists a new text and then adds it to
// the current generation.
package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/index"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

// Stats describes the size of the current generation.
type Stats struct {
	Texts        int `json:"texts"`
	Fingerprints int `json:"fingerprints"`
}

type generation struct {
	lexical *index.Lexical
	value   *index.Value
}

func newGeneration(records []fingerprint.Record) *generation {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return &generation{
		lexical: index.NewLexicalFrom(texts),
		value:   index.NewValueFrom(records),
	}
}

// Cache answers nearest-match lookups and records new texts.
type Cache struct {
	store store.Store

	gen atomic.Pointer[generation]
	// genMu orders generation swaps against in-flight inserts.
	genMu sync.RWMutex

	flight singleflight.Group
	ready  atomic.Bool
}

// New creates an empty, not yet warmed cache backed by s.
func New(s store.Store) *Cache {
	c := &Cache{store: s}
	c.gen.Store(newGeneration(nil))
	return c
}

// WarmUp loads every stored record, validates it and replaces both indices
// in one step. Any error is fatal to startup.
func (c *Cache) WarmUp(ctx context.Context) error {
	start := time.Now()

	records, err := c.store.LoadAll(ctx)
	if err != nil {
		var ae *errors.AppError
		if stderrors.As(err, &ae) {
			return err
		}
		return errors.StorageError(errors.ErrCodeStoreUnavailable, "failed to load stored texts", err)
	}

	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return err
		}
	}

	next := newGeneration(records)

	c.genMu.Lock()
	c.gen.Store(next)
	c.genMu.Unlock()
	c.ready.Store(true)

	slog.Info("cache_warmed",
		slog.Int("texts", next.lexical.Len()),
		slog.Int("fingerprints", next.value.Len()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// validateRecord rejects stored rows that could not have been produced by
// the fingerprint codec.
func validateRecord(rec fingerprint.Record) error {
	normalized, err := fingerprint.Normalize(rec.Text)
	if err != nil || normalized != rec.Text {
		return errors.StorageError(errors.ErrCodeStoreCorrupt,
			fmt.Sprintf("stored text %q is not a normalized letter sequence", rec.Text), err).
			WithDetail("text", rec.Text)
	}
	fp, _ := fingerprint.Compute(rec.Text)
	if fp != rec.Fingerprint {
		return errors.StorageError(errors.ErrCodeStoreCorrupt,
			fmt.Sprintf("stored fingerprint %d for %q does not match computed %d", rec.Fingerprint, rec.Text, fp), nil).
			WithDetail("text", rec.Text)
	}
	return nil
}

// Record persists rec and adds it to both indices.
//
// A text that is already indexed is a no-op. Concurrent calls for the same
// text share a single store write. A failed write leaves the indices
// untouched and returns a non-fatal ERR_203_STORE_WRITE.
func (c *Cache) Record(ctx context.Context, rec fingerprint.Record) error {
	if c.contains(rec.Text) {
		return nil
	}

	_, err, _ := c.flight.Do(rec.Text, func() (any, error) {
		if c.contains(rec.Text) {
			return nil, nil
		}
		return nil, c.persist(ctx, rec)
	})
	return err
}

func (c *Cache) persist(ctx context.Context, rec fingerprint.Record) error {
	err := c.store.Save(ctx, rec)
	switch {
	case err == nil:
	case stderrors.Is(err, store.ErrAlreadyExists):
		slog.Debug("record_already_stored", slog.String("text", rec.Text))
	default:
		slog.Warn("record_failed", append([]any{slog.String("text", rec.Text)}, errors.FormatForLog(err)...)...)
		return errors.StorageError(errors.ErrCodeStoreWrite, "failed to persist text", err).
			WithDetail("text", rec.Text)
	}

	c.insert(rec)
	return nil
}

// insert adds rec to the current generation. The value index goes first so
// that a text visible in the lexical index is always in both.
func (c *Cache) insert(rec fingerprint.Record) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()

	gen := c.gen.Load()
	gen.value.Insert(rec.Fingerprint, rec.Text)
	gen.lexical.Insert(rec.Text)
}

func (c *Cache) contains(text string) bool {
	return c.gen.Load().lexical.Contains(text)
}

// Contains reports whether text is indexed.
func (c *Cache) Contains(text string) bool {
	return c.contains(text)
}

// LexicalNearest returns the indexed text lexically closest to text.
func (c *Cache) LexicalNearest(text string) (string, bool) {
	return c.gen.Load().lexical.FindNearest(text)
}

// ValueNearest returns the text whose fingerprint is closest to fp.
func (c *Cache) ValueNearest(fp int) (string, bool) {
	return c.gen.Load().value.FindNearest(fp)
}

// Ready reports whether WarmUp has completed.
func (c *Cache) Ready() bool {
	return c.ready.Load()
}

// Stats returns the size of the current generation.
func (c *Cache) Stats() Stats {
	gen := c.gen.Load()
	return Stats{
		Texts:        gen.lexical.Len(),
		Fingerprints: gen.value.Len(),
	}
}
