package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/shukan/internal/config"
)

// Daemon runs a set of components for one workspace until it is told to
// stop.
type Daemon struct {
	cfg          *config.Config
	workspaceID  string
	components   []Component
	status       HealthStatus
	startedAt    time.Time
	forceCleanup bool
	mu           sync.RWMutex
}

func NewDaemon(workspaceID string, cfg *config.Config) (*Daemon, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace ID cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Daemon{
		cfg:         cfg,
		workspaceID: workspaceID,
		status:      StatusStarting,
	}, nil
}

// AddComponent registers comp. A second component with the same name is
// ignored.
func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.components {
		if c.Name() == comp.Name() {
			slog.Warn("Component already registered", "component", comp.Name())
			return
		}
	}
	d.components = append(d.components, comp)
	slog.Debug("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (d *Daemon) SetForceCleanup(force bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forceCleanup = force
}

// Start runs the daemon until ctx is cancelled or SIGINT/SIGTERM arrives.
// On a clean stop it returns the context's error.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Shukan daemon starting...", "workspace", d.workspaceID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := d.clearStaleLocks(ctx); err != nil {
		return fmt.Errorf("pre-init checks failed: %w", err)
	}

	d.mu.RLock()
	registered := append([]Component(nil), d.components...)
	d.mu.RUnlock()

	plan, err := planOrder(registered)
	if err != nil {
		return fmt.Errorf("component initialization failed: %w", err)
	}
	slog.Info("Component plan resolved", "order", names(plan))

	startupStop := config.MustDuration(d.cfg.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdownTimeout)

	initialized, err := initComponents(ctx, plan)
	if err != nil {
		_ = d.stopComponents(initialized, startupStop)
		return fmt.Errorf("component initialization failed: %w", err)
	}
	if err := startComponents(ctx, plan); err != nil {
		_ = d.stopComponents(initialized, startupStop)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.mu.Lock()
	d.status = StatusRunning
	d.startedAt = time.Now()
	d.mu.Unlock()
	slog.Info("Shukan daemon is running", "workspace", d.workspaceID, "components", len(plan))

	go d.monitorHealth(ctx)

	<-ctx.Done()
	slog.Info("Context cancelled, initiating graceful shutdown", "workspace", d.workspaceID, "reason", ctx.Err())

	d.setStatus(StatusStopping)
	shutdownTimeout := config.MustDuration(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err := d.stopComponents(initialized, shutdownTimeout); err != nil {
		return err
	}
	return ctx.Err()
}

// initComponents initializes plan in order and returns the ones that
// succeeded, so a failure can undo exactly those.
func initComponents(ctx context.Context, plan []Component) ([]Component, error) {
	done := make([]Component, 0, len(plan))
	for _, comp := range plan {
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", comp.Name(), "error", err)
			return done, fmt.Errorf("component %s init failed: %w", comp.Name(), err)
		}
		slog.Info("Component initialized", "component", comp.Name())
		done = append(done, comp)
	}
	return done, nil
}

func startComponents(ctx context.Context, plan []Component) error {
	for _, comp := range plan {
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", comp.Name(), "error", err)
			return fmt.Errorf("component %s startup failed: %w", comp.Name(), err)
		}
		slog.Info("Component started", "component", comp.Name())
	}
	return nil
}

// stopComponents stops comps in reverse order within timeout. Every
// component gets a Stop call even when an earlier one fails.
func (d *Daemon) stopComponents(comps []Component, timeout time.Duration) error {
	defer d.setStatus(StatusStopped)
	if len(comps) == 0 {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(comps) - 1; i >= 0; i-- {
			name := comps[i].Name()
			if err := comps[i].Stop(stopCtx); err != nil {
				slog.Error("Component stop failed", "component", name, "error", err)
				errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
				continue
			}
			slog.Info("Component stopped", "component", name)
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err == nil {
			slog.Info("Graceful shutdown completed", "workspace", d.workspaceID)
		}
		return err
	case <-stopCtx.Done():
		slog.Error("Shutdown timeout exceeded", "workspace", d.workspaceID, "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
