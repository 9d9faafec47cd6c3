package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	stdatomic "sync/atomic"
	"time"
)

type Operation int

const (
	OpPut Operation = iota
	OpFlush
)

type Request struct {
	Op     Operation
	Key    string
	Value  []byte
	Result chan error
}

// Worker applies writes to a KV from one goroutine, in the order they were
// queued. Put returns as soon as the write is queued.
type Worker struct {
	kv       KV
	inbox    chan Request
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  stdatomic.Bool
	failures stdatomic.Int64
	timeout  time.Duration
}

func NewWorker(kv KV, inboxSize int) *Worker {
	if inboxSize <= 0 {
		inboxSize = 100
	}
	return &Worker{
		kv:      kv,
		inbox:   make(chan Request, inboxSize),
		quit:    make(chan struct{}),
		timeout: 10 * time.Second,
	}
}

func (w *Worker) Start() {
	w.running.Store(true)
	w.wg.Add(1)
	go w.loop()
}

func (w *Worker) loop() {
	slog.Info("StoreWorker started")
	defer func() {
		w.running.Store(false)
		w.wg.Done()
	}()

	for {
		select {
		case req := <-w.inbox:
			w.serve(req)
		case <-w.quit:
			w.drain()
			slog.Info("StoreWorker stopping")
			return
		}
	}
}

// drain applies whatever was queued before Stop.
func (w *Worker) drain() {
	for {
		select {
		case req := <-w.inbox:
			w.serve(req)
		default:
			return
		}
	}
}

func (w *Worker) serve(req Request) {
	err := w.handle(req)
	if err != nil {
		w.failures.Add(1)
		slog.Error("Store write failed", "key", req.Key, "error", err)
	}
	if req.Result != nil {
		req.Result <- err
	}
}

func (w *Worker) handle(req Request) error {
	switch req.Op {
	case OpPut:
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		return w.kv.Put(ctx, req.Key, req.Value)
	case OpFlush:
		return nil
	default:
		return fmt.Errorf("unknown operation: %d", req.Op)
	}
}

// Put queues a write and returns without waiting for it.
func (w *Worker) Put(key string, value []byte) {
	if !w.running.Load() {
		slog.Warn("StoreWorker not running, write dropped", "key", key)
		return
	}
	select {
	case w.inbox <- Request{Op: OpPut, Key: key, Value: value}:
	case <-w.quit:
		slog.Warn("StoreWorker stopped, write dropped", "key", key)
	}
}

// PutSync queues a write and waits for its result.
func (w *Worker) PutSync(ctx context.Context, key string, value []byte) error {
	return w.roundTrip(ctx, Request{Op: OpPut, Key: key, Value: value})
}

// Flush blocks until every write queued before it has been applied.
func (w *Worker) Flush(ctx context.Context) error {
	return w.roundTrip(ctx, Request{Op: OpFlush})
}

func (w *Worker) roundTrip(ctx context.Context, req Request) error {
	req.Result = make(chan error, 1)
	select {
	case <-w.quit:
		return fmt.Errorf("store worker stopped")
	default:
	}
	select {
	case w.inbox <- req:
	case <-w.quit:
		return fmt.Errorf("store worker stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.Result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop applies the queued writes and waits for the goroutine to exit.
// The KV itself is left open.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	w.wg.Wait()
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// Failures counts writes that returned an error.
func (w *Worker) Failures() int64 {
	return w.failures.Load()
}
