package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingKV remembers every Put in order.
type recordingKV struct {
	*MemoryKV
	mu    sync.Mutex
	order []string
	fail  bool
	delay time.Duration
}

func newRecordingKV() *recordingKV {
	return &recordingKV{MemoryKV: NewMemoryKV()}
}

func (r *recordingKV) Put(ctx context.Context, key string, value []byte) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.order = append(r.order, key+"="+string(value))
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.MemoryKV.Put(ctx, key, value)
}

func (r *recordingKV) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func TestWorker_AppliesInOrder(t *testing.T) {
	kv := newRecordingKV()
	w := NewWorker(kv, 4)
	w.Start()
	defer w.Stop()

	for i := range 20 {
		w.Put(KeyStats, []byte(fmt.Sprint(i)))
	}
	require.NoError(t, w.Flush(context.Background()))

	writes := kv.writes()
	require.Len(t, writes, 20)
	assert.Equal(t, "stats=0", writes[0])
	assert.Equal(t, "stats=19", writes[19])

	got, err := kv.Get(context.Background(), KeyStats)
	require.NoError(t, err)
	assert.Equal(t, "19", string(got))
}

func TestWorker_StopDrainsQueue(t *testing.T) {
	kv := newRecordingKV()
	kv.delay = 2 * time.Millisecond
	w := NewWorker(kv, 16)
	w.Start()

	for i := range 10 {
		w.Put(KeyRoutines, []byte(fmt.Sprint(i)))
	}
	w.Stop()

	assert.Len(t, kv.writes(), 10)
	assert.False(t, w.IsRunning())
}

func TestWorker_FailuresAreCounted(t *testing.T) {
	kv := newRecordingKV()
	kv.fail = true
	w := NewWorker(kv, 4)
	w.Start()
	defer w.Stop()

	w.Put(KeySettings, []byte(`{}`))
	err := w.PutSync(context.Background(), KeySettings, []byte(`{}`))

	assert.EqualError(t, err, "disk full")
	assert.Equal(t, int64(2), w.Failures())
}

func TestWorker_PutAfterStopIsDropped(t *testing.T) {
	kv := newRecordingKV()
	w := NewWorker(kv, 4)
	w.Start()
	w.Stop()
	w.Stop()

	w.Put(KeyStats, []byte(`{}`))

	assert.Empty(t, kv.writes())
	assert.Error(t, w.Flush(context.Background()))
}

func TestWorker_FlushHonoursContext(t *testing.T) {
	kv := newRecordingKV()
	kv.delay = 200 * time.Millisecond
	w := NewWorker(kv, 4)
	w.Start()
	defer w.Stop()

	w.Put(KeyStats, []byte(`{}`))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, w.Flush(ctx), context.DeadlineExceeded)
}
