package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/formatter"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/store"
)

type noLuck struct{}

func (noLuck) IntN(int) int     { return 0 }
func (noLuck) Float64() float64 { return 0.99 }

func newFocusEngine(t *testing.T) (*engine.Engine, *notify.Broker, routine.Routine) {
	t.Helper()
	broker := notify.NewBroker()
	t.Cleanup(broker.Close)

	e, err := engine.New(context.Background(), store.NewMemoryKV(), broker, engine.Options{
		Clock:        daytime.NewFixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		Rand:         noLuck{},
		TickInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(context.Background()) })

	title, minutes := "Read", 20
	r, err := e.AddRoutine(context.Background(), routine.Fields{Title: &title, DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("AddRoutine: %v", err)
	}
	return e, broker, r
}

func TestRunFocus_FinishEarly(t *testing.T) {
	e, broker, r := newFocusEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runFocus(ctx, e, broker.Subscribe(ctx), r.ID, strings.NewReader("p\np\nm\nf\n"), &out, formatter.NewTableFormatter())
	if err != nil {
		t.Fatalf("runFocus: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Focusing on Read for 20:00") {
		t.Fatalf("missing start banner in %q", text)
	}
	if !strings.Contains(text, "21:00") {
		t.Fatalf("expected the added minute to show, got %q", text)
	}
	if !strings.Contains(text, "Completed") {
		t.Fatalf("expected outcome card, got %q", text)
	}

	got, err := e.Routine(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Routine: %v", err)
	}
	if got.Streak != 1 || !got.CompletedToday {
		t.Fatalf("routine not completed: streak=%d today=%v", got.Streak, got.CompletedToday)
	}
	if _, active, _ := e.ActiveSession(context.Background()); active {
		t.Fatal("session should be over")
	}
}

func TestRunFocus_CancelCommand(t *testing.T) {
	e, broker, r := newFocusEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runFocus(ctx, e, broker.Subscribe(ctx), r.ID, strings.NewReader("x\nc\n"), &out, formatter.NewTableFormatter())
	if err != nil {
		t.Fatalf("runFocus: %v", err)
	}
	if !strings.Contains(out.String(), `unknown command "x"`) {
		t.Fatalf("expected unknown command hint, got %q", out.String())
	}
	if !strings.Contains(out.String(), "Session cancelled.") {
		t.Fatalf("expected cancel message, got %q", out.String())
	}

	got, _ := e.Routine(context.Background(), r.ID)
	if got.Streak != 0 {
		t.Fatalf("cancelled session must not complete the routine, streak=%d", got.Streak)
	}
}

func TestRunFocus_ContextCancelEndsSession(t *testing.T) {
	e, broker, r := newFocusEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	var out bytes.Buffer
	if err := runFocus(ctx, e, broker.Subscribe(ctx), r.ID, pr, &out, formatter.NewTableFormatter()); err != nil {
		t.Fatalf("runFocus: %v", err)
	}
	if !strings.Contains(out.String(), "Session cancelled.") {
		t.Fatalf("expected cancel message, got %q", out.String())
	}
	if _, active, _ := e.ActiveSession(context.Background()); active {
		t.Fatal("session should have been cancelled")
	}
}

func TestRunFocus_UnknownRoutine(t *testing.T) {
	e, broker, _ := newFocusEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runFocus(ctx, e, broker.Subscribe(ctx), "missing", strings.NewReader(""), &out, formatter.NewTableFormatter())
	if err == nil {
		t.Fatal("expected error for unknown routine")
	}
}

func TestClock(t *testing.T) {
	tests := map[int64]string{
		0:       "00:00",
		1:       "00:01",
		59_000:  "00:59",
		60_000:  "01:00",
		125_500: "02:06",
	}
	for ms, want := range tests {
		if got := clock(ms); got != want {
			t.Errorf("clock(%d) = %q, want %q", ms, got, want)
		}
	}
}
