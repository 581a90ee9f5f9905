package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
)

// Recorder defaults.
const (
	DefaultRecordQueue   = 1024
	DefaultRecordWorkers = 2
)

// Sink receives the records a Recorder dequeues. *Cache implements it.
type Sink interface {
	Record(ctx context.Context, rec fingerprint.Record) error
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// QueueSize is the capacity of the pending-record channel.
	QueueSize int
	// Workers is the number of goroutines draining the channel.
	Workers int
}

// RecorderStats counts what happened to submitted records.
type RecorderStats struct {
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
	Recorded  int64 `json:"recorded"`
	Failed    int64 `json:"failed"`
}

// Recorder persists records in the background so that callers never wait
// on the store. Records are fed through a bounded channel; when it is full
// the record is dropped and a warning is logged. Failures are not retried.
type Recorder struct {
	sink    Sink
	workers int
	queue   chan fingerprint.Record

	// sendMu guards queue against a send racing Stop's close.
	sendMu  sync.RWMutex
	stopped bool

	startOnce sync.Once
	wg        sync.WaitGroup

	submitted atomic.Int64
	dropped   atomic.Int64
	recorded  atomic.Int64
	failed    atomic.Int64
}

// NewRecorder creates a Recorder feeding sink. Call Start before Submit
// has any effect beyond queueing.
func NewRecorder(sink Sink, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRecordQueue
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRecordWorkers
	}
	return &Recorder{
		sink:    sink,
		workers: cfg.Workers,
		queue:   make(chan fingerprint.Record, cfg.QueueSize),
	}
}

// Start launches the workers. It is non-blocking and idempotent.
// Workers keep running after ctx is cancelled until Stop drains the queue.
func (r *Recorder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go r.run(ctx)
		}
		slog.Debug("recorder_started", slog.Int("workers", r.workers), slog.Int("queue", cap(r.queue)))
	})
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for rec := range r.queue {
		if err := r.sink.Record(ctx, rec); err != nil {
			r.failed.Add(1)
			slog.Warn("record_dropped_after_failure",
				append([]any{slog.String("text", rec.Text)}, errors.FormatForLog(err)...)...)
			continue
		}
		r.recorded.Add(1)
	}
}

// Submit queues rec without blocking. It reports false when the record was
// dropped because the queue is full or the recorder is stopped.
func (r *Recorder) Submit(rec fingerprint.Record) bool {
	r.sendMu.RLock()
	defer r.sendMu.RUnlock()

	if r.stopped {
		r.dropped.Add(1)
		return false
	}

	select {
	case r.queue <- rec:
		r.submitted.Add(1)
		return true
	default:
		r.dropped.Add(1)
		slog.Warn("record_queue_full",
			slog.String("text", rec.Text),
			slog.Int("capacity", cap(r.queue)))
		return false
	}
}

// Stop closes the queue, lets the workers drain what is already queued and
// waits for them to exit. Safe to call more than once.
func (r *Recorder) Stop() {
	r.sendMu.Lock()
	if r.stopped {
		r.sendMu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.sendMu.Unlock()

	// Drain with one worker if Start was never called.
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run(context.Background())
	})
	r.wg.Wait()

	st := r.Stats()
	slog.Debug("recorder_stopped",
		slog.Int64("recorded", st.Recorded),
		slog.Int64("failed", st.Failed),
		slog.Int64("dropped", st.Dropped))
}

// Stats returns the current counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Queued:    len(r.queue),
		Submitted: r.submitted.Load(),
		Dropped:   r.dropped.Load(),
		Recorded:  r.recorded.Load(),
		Failed:    r.failed.Load(),
	}
}
