package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daemon"
	"github.com/harunnryd/shukan/internal/daytime"
	"github.com/harunnryd/shukan/internal/reminder"
)

type ReminderComponent struct {
	sched      *reminder.Scheduler
	cfg        *config.ReminderConfig
	engineComp *EngineComponent
	notifier   *NotifierComponent
	clock      daytime.Clock
}

func NewReminderComponent(cfg *config.ReminderConfig, engineComp *EngineComponent, notifier *NotifierComponent) *ReminderComponent {
	return &ReminderComponent{
		cfg:        cfg,
		engineComp: engineComp,
		notifier:   notifier,
		clock:      daytime.SystemClock{},
	}
}

func (r *ReminderComponent) Name() string {
	return "Reminder"
}

func (r *ReminderComponent) Dependencies() []string {
	return []string{"Engine", "Notifier"}
}

func (r *ReminderComponent) enabled() bool {
	return r.cfg != nil && r.cfg.Enabled
}

func (r *ReminderComponent) Init(ctx context.Context) error {
	if !r.enabled() {
		slog.Info("Reminders disabled", "component", r.Name())
		return nil
	}
	if r.engineComp == nil || r.engineComp.Engine() == nil {
		return fmt.Errorf("engine not initialized")
	}
	if r.notifier == nil || r.notifier.Broker() == nil {
		return fmt.Errorf("notifier not initialized")
	}

	sched, err := reminder.NewScheduler(r.engineComp.Engine(), r.notifier.Broker(), r.clock, *r.cfg)
	if err != nil {
		return fmt.Errorf("failed to create reminder scheduler: %w", err)
	}
	if err := sched.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize reminder scheduler: %w", err)
	}
	r.sched = sched

	slog.Info("Reminder initialized", "component", r.Name())
	return nil
}

func (r *ReminderComponent) Start(ctx context.Context) error {
	if !r.enabled() {
		return nil
	}
	if r.sched == nil {
		return fmt.Errorf("reminder scheduler not initialized")
	}
	if err := r.sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}
	slog.Info("Reminder started", "component", r.Name())
	return nil
}

func (r *ReminderComponent) Stop(ctx context.Context) error {
	if r.sched == nil {
		slog.Info("Reminder not initialized, skipping stop", "component", r.Name())
		return nil
	}
	if err := r.sched.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop reminder scheduler: %w", err)
	}
	slog.Info("Reminder stopped", "component", r.Name())
	return nil
}

func (r *ReminderComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !r.enabled() {
		return daemon.Healthy(r.Name()), nil
	}
	if r.sched == nil {
		return daemon.Unhealthy(r.Name(), fmt.Errorf("not initialized")), nil
	}
	if err := r.sched.Health(ctx); err != nil {
		return daemon.Unhealthy(r.Name(), err), nil
	}
	return daemon.Healthy(r.Name()), nil
}
