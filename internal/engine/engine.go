// Package engine owns the routine, stats and settings state and serialises
// every operation on it through one goroutine.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/session"
	"github.com/harunnryd/shukan/internal/store"
)

var ErrClosed = errors.New("engine closed")

type request func()

// Engine is the single writer of all persistent state. Public methods post a
// closure to the inbox and wait for its result; the loop runs them one at a
// time, so no state below is touched outside the loop goroutine.
type Engine struct {
	opts      Options
	kv        store.KV
	writer    *store.Worker
	publisher notify.Publisher
	ticker    *session.Ticker

	inbox     chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	routines *routine.Set
	stats    profile.Stats
	settings profile.Settings
	active   *session.Session
}

// New loads state from kv and starts the engine. The engine takes ownership
// of kv and closes it on Close. publisher may be nil.
func New(ctx context.Context, kv store.KV, publisher notify.Publisher, opts Options) (*Engine, error) {
	if kv == nil {
		return nil, shukanErrors.InvalidInput("engine requires a store")
	}
	if publisher == nil {
		publisher = discard{}
	}
	opts = opts.withDefaults()

	e := &Engine{
		opts:      opts,
		kv:        kv,
		writer:    store.NewWorker(kv, opts.InboxSize),
		publisher: publisher,
		inbox:     make(chan request, opts.InboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.ticker = session.NewTicker(opts.TickInterval, e.onTick)

	e.writer.Start()
	if err := e.load(ctx); err != nil {
		e.writer.Stop()
		return nil, err
	}

	e.ensureCurrentDay()
	go e.loop()
	slog.Info("Engine started", "routines", e.routines.Len(), "level", e.stats.Level)
	return e, nil
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.inbox:
			fn()
		case <-e.quit:
			return
		}
	}
}

// call runs fn on the loop goroutine and returns its result. Once queued the
// operation runs to completion even if ctx is cancelled meanwhile.
func call[T any](ctx context.Context, e *Engine, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	var zero T
	res := make(chan result, 1)

	req := func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Engine operation panicked", "panic", p)
				res <- result{err: shukanErrors.Internal(fmt.Sprintf("engine operation panicked: %v", p))}
			}
		}()
		v, err := fn()
		res <- result{value: v, err: err}
	}

	select {
	case <-e.quit:
		return zero, ErrClosed
	default:
	}
	select {
	case e.inbox <- req:
	case <-e.quit:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-res:
		return r.value, r.err
	case <-e.done:
		select {
		case r := <-res:
			return r.value, r.err
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// exec is call for operations without a result value.
func exec(ctx context.Context, e *Engine, fn func() error) error {
	_, err := call(ctx, e, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

type blobState int

const (
	blobLoaded blobState = iota
	blobMissing
	blobMalformed
)

// load reads the three blobs. Missing blobs get defaults and are written
// back; malformed ones get defaults in memory only, so the stored copy
// survives until the next change.
func (e *Engine) load(ctx context.Context) error {
	now := e.opts.Clock.Now()
	today := daytime.DateOf(now)
	var missing []string

	var routines []routine.Routine
	state, err := e.readBlob(ctx, store.KeyRoutines, &routines)
	if err != nil {
		return err
	}
	if state != blobLoaded {
		routines = nil
		if e.opts.SeedExamples {
			routines = routine.Examples(today)
		}
	}
	if state == blobMissing {
		missing = append(missing, store.KeyRoutines)
	}
	e.routines = routine.NewSet(routines)

	e.stats = profile.DefaultStats(now, today)
	state, err = e.readBlob(ctx, store.KeyStats, &e.stats)
	if err != nil {
		return err
	}
	if state == blobLoaded {
		if verr := e.stats.Validate(); verr != nil {
			slog.Warn("Stored stats rejected, using defaults", "error", verr)
			state = blobMalformed
		}
	}
	if state != blobLoaded {
		e.stats = profile.DefaultStats(now, today)
	}
	if state == blobMissing {
		missing = append(missing, store.KeyStats)
	}
	e.stats.Normalize()

	e.settings = profile.DefaultSettings()
	state, err = e.readBlob(ctx, store.KeySettings, &e.settings)
	if err != nil {
		return err
	}
	if state == blobLoaded {
		if verr := e.settings.Validate(); verr != nil {
			slog.Warn("Stored settings rejected, using defaults", "error", verr)
			state = blobMalformed
		}
	}
	if state != blobLoaded {
		e.settings = profile.DefaultSettings()
	}
	if state == blobMissing {
		missing = append(missing, store.KeySettings)
	}

	e.persist(missing...)
	return nil
}

// readBlob decodes key into v. Only a failing store is an error.
func (e *Engine) readBlob(ctx context.Context, key string, v any) (blobState, error) {
	data, err := e.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, shukanErrors.ErrNotFound) {
			return blobMissing, nil
		}
		return blobMissing, shukanErrors.Wrap(err, fmt.Sprintf("load %s", key))
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("Stored blob malformed, using defaults", "key", key, "error", err)
		return blobMalformed, nil
	}
	return blobLoaded, nil
}

// persist queues the current value of each key for writing.
func (e *Engine) persist(keys ...string) {
	for _, key := range keys {
		var v any
		switch key {
		case store.KeyRoutines:
			v = e.routines.List("")
		case store.KeyStats:
			v = e.stats
		case store.KeySettings:
			v = e.settings
		default:
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			slog.Error("Failed to encode state", "key", key, "error", err)
			continue
		}
		e.writer.Put(key, data)
	}
}

// ensureCurrentDay resets the day-scoped counters and completion flags when
// the calendar day has moved on since they were last touched.
func (e *Engine) ensureCurrentDay() daytime.Date {
	today := daytime.Today(e.opts.Clock)
	if e.stats.EnsureDay(today) {
		slog.Info("New day, daily counters reset", "date", today)
		e.persist(store.KeyStats)
	}
	if e.routines.RefreshDay(today) {
		e.persist(store.KeyRoutines)
	}
	return today
}

func (e *Engine) now() time.Time {
	return e.opts.Clock.Now()
}

func (e *Engine) publish(n notify.Notification) {
	e.publisher.Publish(n)
}

func (e *Engine) toast(msg string) {
	e.publish(notify.Toast(msg, e.now()))
}

// Flush waits until every queued write has reached the store.
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.Flush(ctx)
}

// Close stops the loop and the session ticker, drains pending writes and
// closes the store. An active session is discarded.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		close(e.quit)
		select {
		case <-e.done:
		case <-ctx.Done():
			e.closeErr = ctx.Err()
		}
		e.ticker.Stop()
		e.writer.Stop()
		if err := e.kv.Close(); err != nil && e.closeErr == nil {
			e.closeErr = err
		}
		slog.Info("Engine stopped")
	})
	return e.closeErr
}

type discard struct{}

func (discard) Publish(notify.Notification) {}
