package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/concurrency"
)

// TickFunc receives one tick. ctx is cancelled when the ticker stops, so a
// callback blocked on a busy consumer can give up.
type TickFunc func(ctx context.Context, sessionID string, step time.Duration)

// Ticker drives a session at a fixed cadence from its own goroutine.
type Ticker struct {
	interval time.Duration
	fn       TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTicker(interval time.Duration, fn TickFunc) *Ticker {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Ticker{interval: interval, fn: fn}
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Start begins ticking for sessionID, replacing any previous run.
func (t *Ticker) Start(sessionID string) {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	concurrency.Go("session-ticker", func() {
		defer close(done)
		t.run(ctx, sessionID)
	}, nil)
	slog.Debug("Session ticker started", "session_id", sessionID, "interval", t.interval)
}

// Stop halts the goroutine and waits for it to exit. Safe to call when idle.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a tick goroutine is live.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Ticker) run(ctx context.Context, sessionID string) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.fn(ctx, sessionID, t.interval)
		}
	}
}
