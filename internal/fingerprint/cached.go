package fingerprint

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of raw texts whose encoding is kept.
const DefaultCacheSize = 4096

// CachedCodec memoizes Encode results keyed by the raw input text.
// Failed encodings are never cached.
type CachedCodec struct {
	cache *lru.Cache[string, Record]
}

// NewCachedCodec creates a codec holding up to size encodings.
// A non-positive size selects DefaultCacheSize.
func NewCachedCodec(size int) *CachedCodec {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, Record](size)
	return &CachedCodec{cache: cache}
}

// Encode returns the cached record for raw, computing it on a miss.
func (c *CachedCodec) Encode(raw string) (Record, error) {
	if rec, ok := c.cache.Get(raw); ok {
		return rec, nil
	}
	rec, err := Encode(raw)
	if err != nil {
		return Record{}, err
	}
	c.cache.Add(raw, rec)
	return rec, nil
}

// Len returns the number of cached encodings.
func (c *CachedCodec) Len() int {
	return c.cache.Len()
}
