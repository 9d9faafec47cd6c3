// Package reminder nudges the user at each routine's scheduled time and
// after long stretches without focus.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daytime"
	"github.com/harunnryd/shukan/internal/engine"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/routine"

	"github.com/robfig/cron/v3"
)

const InactivityMessage = "It's been a while. A short focus session keeps the streak alive."

type StateReader interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
}

// entry tracks the next firing of one routine's daily schedule.
type entry struct {
	spec     string
	schedule cron.Schedule
	next     time.Time
}

type Scheduler struct {
	state     StateReader
	publisher notify.Publisher
	clock     daytime.Clock

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	done    chan struct{}

	plan        map[string]*entry
	nudgedFor   time.Time
	lastTickErr error

	tickInterval    time.Duration
	inactivity      time.Duration
	dueMargin       time.Duration
	shutdownTimeout time.Duration
}

func NewScheduler(state StateReader, publisher notify.Publisher, clock daytime.Clock, cfg config.ReminderConfig) (*Scheduler, error) {
	tickInterval, err := config.DurationOrDefault(cfg.TickInterval, config.DefaultReminderTickInterval)
	if err != nil {
		return nil, fmt.Errorf("parse reminder tick interval: %w", err)
	}
	inactivity, err := config.DurationOrDefault(cfg.Inactivity, config.DefaultReminderInactivity)
	if err != nil {
		return nil, fmt.Errorf("parse reminder inactivity: %w", err)
	}
	dueMargin, err := config.DurationOrDefault(cfg.DueMargin, config.DefaultReminderDueMargin)
	if err != nil {
		return nil, fmt.Errorf("parse reminder due margin: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultReminderShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse reminder shutdown timeout: %w", err)
	}
	if clock == nil {
		clock = daytime.SystemClock{}
	}

	return &Scheduler{
		state:           state,
		publisher:       publisher,
		clock:           clock,
		plan:            make(map[string]*entry),
		tickInterval:    tickInterval,
		inactivity:      inactivity,
		dueMargin:       dueMargin,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

// CronSpec turns an "HH:MM" schedule into a daily cron expression.
func CronSpec(r routine.Routine) (string, error) {
	at, err := routine.NormalizeTime(r.ScheduledTime)
	if err != nil {
		return "", err
	}
	hour, minute := routine.Routine{ScheduledTime: at}.Clock()
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func (s *Scheduler) Init(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	slog.Info("Reminder scheduler initialized", "tick", s.tickInterval, "inactivity", s.inactivity)
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.ctx == nil || s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run()

	slog.Info("Reminder scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	s.cancel()

	select {
	case <-done:
		slog.Info("Reminder scheduler stopped gracefully")
		return nil
	case <-time.After(s.shutdownTimeout):
		slog.Warn("Reminder scheduler shutdown timeout, force stopping")
		return shukanErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if s.ctx == nil {
		return shukanErrors.Internal("reminder scheduler not initialized")
	}
	if !s.IsRunning() {
		return shukanErrors.Internal("reminder scheduler not running")
	}
	s.mu.RLock()
	err := s.lastTickErr
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("last reminder tick: %w", shukanErrors.ErrTransient)
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.onTick(s.ctx)
	for {
		select {
		case <-ticker.C:
			s.onTick(s.ctx)
		case <-s.ctx.Done():
			slog.Info("Reminder run loop stopped")
			return
		}
	}
}

func (s *Scheduler) onTick(ctx context.Context) {
	snap, err := s.state.Snapshot(ctx)
	s.mu.Lock()
	s.lastTickErr = err
	s.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Reminder could not read state", "error", err)
		}
		return
	}

	now := s.clock.Now()
	s.processDue(snap, now)
	s.processInactivity(snap, now)
}

// processDue fires a reminder for every routine whose scheduled time has
// passed and that is not yet done today. Firings older than the due margin
// are skipped rather than delivered late.
func (s *Scheduler) processDue(snap engine.Snapshot, now time.Time) {
	seen := make(map[string]struct{}, len(snap.Routines))
	for _, r := range snap.Routines {
		seen[r.ID] = struct{}{}

		e, err := s.entryFor(r, now)
		if err != nil {
			slog.Warn("Routine has no valid schedule", "routine_id", r.ID, "error", err)
			continue
		}
		if now.Before(e.next) {
			continue
		}

		fireTime := e.next
		e.next = e.schedule.Next(now)

		if r.CompletedToday || snap.Session != nil {
			continue
		}
		if now.Sub(fireTime) > s.dueMargin {
			slog.Debug("Skipping stale reminder", "routine_id", r.ID, "fire_time", fireTime)
			continue
		}
		s.publisher.Publish(notify.Reminder(r.ID, fmt.Sprintf("%s %s is due now", r.Emoji, r.Title), now))
		slog.Info("Reminder sent", "routine_id", r.ID, "scheduled", r.ScheduledTime)
	}

	for id := range s.plan {
		if _, ok := seen[id]; !ok {
			delete(s.plan, id)
		}
	}
}

// entryFor returns the plan entry for r, rebuilding it when the scheduled
// time changed. A new entry starts one margin in the past so a reminder
// that is due right now still fires.
func (s *Scheduler) entryFor(r routine.Routine, now time.Time) (*entry, error) {
	spec, err := CronSpec(r)
	if err != nil {
		return nil, err
	}
	if e, ok := s.plan[r.ID]; ok && e.spec == spec {
		return e, nil
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule: %w", err)
	}
	e := &entry{spec: spec, schedule: schedule, next: schedule.Next(now.Add(-s.dueMargin - time.Minute))}
	s.plan[r.ID] = e
	return e, nil
}

// processInactivity sends one nudge per idle stretch.
func (s *Scheduler) processInactivity(snap engine.Snapshot, now time.Time) {
	if snap.Session != nil || s.inactivity <= 0 {
		return
	}
	last := snap.Stats.LastActive
	if last.IsZero() || now.Sub(last) < s.inactivity || last.Equal(s.nudgedFor) {
		return
	}
	s.nudgedFor = last
	s.publisher.Publish(notify.Toast(InactivityMessage, now))
	slog.Info("Inactivity nudge sent", "idle", now.Sub(last).Round(time.Minute))
}
