// Package analyze answers a single analyze request: find the nearest known
// texts to a new one, then remember the new text.
package analyze

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/nearmatch/internal/cache"
	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
)

// Result is the answer to one analyze request. A nil field means the cache
// was empty when the request was served.
type Result struct {
	NearestByValue   *string `json:"nearestByValue"`
	NearestByLexical *string `json:"nearestByLexical"`

	// Query is the normalized input and its fingerprint.
	Query fingerprint.Record `json:"-"`
}

// Status summarizes the service for health and status endpoints.
type Status struct {
	Ready    bool                 `json:"ready"`
	Cache    cache.Stats          `json:"cache"`
	Recorder *cache.RecorderStats `json:"recorder,omitempty"`
}

// Analyzer is implemented by Service and consumed by the transports.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (Result, error)
	Status() Status
}

// Service looks texts up in a Cache and records them afterwards.
type Service struct {
	cache    *cache.Cache
	codec    *fingerprint.CachedCodec
	recorder *cache.Recorder
}

var _ Analyzer = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithRecorder hands new records to r instead of recording them inline.
func WithRecorder(r *cache.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithCodec replaces the default fingerprint codec.
func WithCodec(c *fingerprint.CachedCodec) Option {
	return func(s *Service) { s.codec = c }
}

// New creates a Service over c.
func New(c *cache.Cache, opts ...Option) *Service {
	s := &Service{cache: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = fingerprint.NewCachedCodec(fingerprint.DefaultCacheSize)
	}
	return s
}

// Analyze normalizes raw, looks up its nearest neighbours in both indices
// and then records it. Invalid input fails with ERR_402_INVALID_TEXT before
// any index is touched. Recording never changes the result or its error.
func (s *Service) Analyze(ctx context.Context, raw string) (Result, error) {
	start := time.Now()

	rec, err := s.codec.Encode(raw)
	if err != nil {
		return Result{}, err
	}

	res := Result{Query: rec}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if text, ok := s.cache.LexicalNearest(rec.Text); ok {
			res.NearestByLexical = &text
		}
		return nil
	})
	g.Go(func() error {
		if text, ok := s.cache.ValueNearest(rec.Fingerprint); ok {
			res.NearestByValue = &text
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, errors.InternalError("lookup failed", err)
	}

	s.record(ctx, rec)

	slog.Debug("analyze_completed",
		slog.String("text", rec.Text),
		slog.Int("fingerprint", rec.Fingerprint),
		slog.Bool("lexical_hit", res.NearestByLexical != nil),
		slog.Bool("value_hit", res.NearestByValue != nil),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}

func (s *Service) record(ctx context.Context, rec fingerprint.Record) {
	if s.recorder != nil {
		s.recorder.Submit(rec)
		return
	}
	if err := s.cache.Record(ctx, rec); err != nil {
		slog.Warn("record_failed", errors.FormatForLog(err)...)
	}
}

// Status reports readiness and index sizes.
func (s *Service) Status() Status {
	st := Status{
		Ready: s.cache.Ready(),
		Cache: s.cache.Stats(),
	}
	if s.recorder != nil {
		rs := s.recorder.Stats()
		st.Recorder = &rs
	}
	return st
}
