package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/store"
)

type durationSetting struct {
	key   string
	value string
	def   string
}

func (d *Daemon) durationSettings() []durationSetting {
	c := d.cfg
	return []durationSetting{
		{"server.read_timeout", c.Server.ReadTimeout, config.DefaultServerReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout, config.DefaultServerWriteTimeout},
		{"server.idle_timeout", c.Server.IdleTimeout, config.DefaultServerIdleTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout},
		{"store.lock_timeout", c.Store.LockTimeout, config.DefaultStoreLockTimeout},
		{"store.lock_retry", c.Store.LockRetry, config.DefaultStoreLockRetry},
		{"engine.tick_interval", c.Engine.TickInterval, config.DefaultEngineTickInterval},
		{"engine.combo_window", c.Engine.ComboWindow, config.DefaultEngineComboWindow},
		{"reminder.tick_interval", c.Reminder.TickInterval, config.DefaultReminderTickInterval},
		{"reminder.inactivity", c.Reminder.Inactivity, config.DefaultReminderInactivity},
		{"reminder.due_margin", c.Reminder.DueMargin, config.DefaultReminderDueMargin},
		{"reminder.shutdown_timeout", c.Reminder.ShutdownTimeout, config.DefaultReminderShutdownTimeout},
		{"daemon.shutdown_timeout", c.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout},
		{"daemon.health_check_interval", c.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval},
		{"daemon.startup_shutdown_timeout", c.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdownTimeout},
		{"daemon.preflight_timeout", c.Daemon.PreflightTimeout, config.DefaultDaemonPreflightTimeout},
		{"daemon.stale_lock_ttl", c.Daemon.StaleLockTTL, config.DefaultDaemonStaleLockTTL},
	}
}

// validateConfig rejects settings that would otherwise only fail once a
// component reads them, and makes sure an on-disk workspace exists.
func (d *Daemon) validateConfig() error {
	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}
	if chance := d.cfg.Engine.RewardChance; chance < 0 || chance > 1 {
		return fmt.Errorf("invalid engine.reward_chance: %v (must be 0-1)", chance)
	}
	for _, s := range d.durationSettings() {
		dur, err := config.DurationOrDefault(s.value, s.def)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", s.key, err)
		}
		if dur <= 0 {
			return fmt.Errorf("invalid %s: must be positive", s.key)
		}
	}

	backend := store.ResolveBackend(d.cfg.Store)
	if backend == store.BackendFile || backend == store.BackendSQLite {
		workspacePath, err := store.GetWorkspacePath(d.workspaceID, d.cfg.Store.WorkspacePath)
		if err != nil {
			return fmt.Errorf("resolve workspace path: %w", err)
		}
		if err := os.MkdirAll(workspacePath, 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}

	slog.Info("Configuration validated", "workspace", d.workspaceID, "port", d.cfg.Server.Port, "store", backend)
	return nil
}

// clearStaleLocks removes workspace locks left by a crashed process. Only
// the file backend takes one.
func (d *Daemon) clearStaleLocks(ctx context.Context) error {
	if store.ResolveBackend(d.cfg.Store) != store.BackendFile {
		return nil
	}

	timeout := config.MustDuration(d.cfg.Daemon.PreflightTimeout, config.DefaultDaemonPreflightTimeout)
	ttl := config.MustDuration(d.cfg.Daemon.StaleLockTTL, config.DefaultDaemonStaleLockTTL)
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workspacePath, err := store.GetWorkspacePath(d.workspaceID, d.cfg.Store.WorkspacePath)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	d.mu.RLock()
	force := d.forceCleanup
	d.mu.RUnlock()
	if err := store.CleanupStaleLocks(workspacePath, ttl, force); err != nil {
		slog.Warn("Failed to cleanup stale locks", "workspace", d.workspaceID, "error", err)
	}

	if err := checkCtx.Err(); err != nil {
		return fmt.Errorf("stale lock check cancelled: %w", err)
	}
	return nil
}
