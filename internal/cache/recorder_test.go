package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

// blockingSink records what it receives and can be held closed.
type blockingSink struct {
	mu      sync.Mutex
	got     []string
	gate    chan struct{}
	failFor string
}

func (s *blockingSink) Record(_ context.Context, rec fingerprint.Record) error {
	if s.gate != nil {
		<-s.gate
	}
	if rec.Text == s.failFor {
		return stderrors.New("boom")
	}
	s.mu.Lock()
	s.got = append(s.got, rec.Text)
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func TestRecorder_PersistsSubmittedRecords(t *testing.T) {
	c := New(store.NewMemoryStore())
	r := NewRecorder(c, RecorderConfig{QueueSize: 16, Workers: 2})
	r.Start(context.Background())

	for _, text := range []string{"a", "b", "c"} {
		assert.True(t, r.Submit(rec(text)))
	}
	r.Stop()

	assert.Equal(t, 3, c.Stats().Texts)
	st := r.Stats()
	assert.Equal(t, int64(3), st.Submitted)
	assert.Equal(t, int64(3), st.Recorded)
	assert.Zero(t, st.Dropped)
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	r := NewRecorder(sink, RecorderConfig{QueueSize: 1, Workers: 1})
	r.Start(context.Background())

	// The worker takes the first record and blocks on the gate.
	require.True(t, r.Submit(rec("a")))
	require.Eventually(t, func() bool { return r.Stats().Queued == 0 }, time.Second, 5*time.Millisecond)

	// One slot in the queue, then it is full.
	assert.True(t, r.Submit(rec("b")))
	assert.False(t, r.Submit(rec("c")))

	close(sink.gate)
	r.Stop()

	assert.ElementsMatch(t, []string{"a", "b"}, sink.texts())
	assert.Equal(t, int64(1), r.Stats().Dropped)
}

func TestRecorder_FailureIsCountedNotRetried(t *testing.T) {
	sink := &blockingSink{failFor: "bad"}
	r := NewRecorder(sink, RecorderConfig{QueueSize: 4, Workers: 1})
	r.Start(context.Background())

	r.Submit(rec("bad"))
	r.Submit(rec("good"))
	r.Stop()

	assert.Equal(t, []string{"good"}, sink.texts())
	st := r.Stats()
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, int64(1), st.Recorded)
}

func TestRecorder_StopDrainsAfterContextCancel(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	r := NewRecorder(sink, RecorderConfig{QueueSize: 8, Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	r.Submit(rec("a"))
	r.Submit(rec("b"))
	cancel()
	close(sink.gate)
	r.Stop()

	assert.ElementsMatch(t, []string{"a", "b"}, sink.texts())
}

func TestRecorder_SubmitAfterStop(t *testing.T) {
	r := NewRecorder(&blockingSink{}, RecorderConfig{})
	r.Start(context.Background())
	r.Stop()
	r.Stop()

	assert.False(t, r.Submit(rec("a")))
	assert.Equal(t, int64(1), r.Stats().Dropped)
}

func TestRecorder_StopWithoutStartDrains(t *testing.T) {
	sink := &blockingSink{}
	r := NewRecorder(sink, RecorderConfig{QueueSize: 4})

	r.Submit(rec("a"))
	r.Stop()

	assert.Equal(t, []string{"a"}, sink.texts())
}
