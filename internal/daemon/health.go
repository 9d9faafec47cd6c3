package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/shukan/internal/config"
)

type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Daemon) setStatus(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.startedAt.IsZero() {
		return 0
	}
	return time.Since(d.startedAt)
}

// ComponentHealth asks every registered component for its health. A
// component that errors or returns nil is reported unhealthy.
func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	comps := append([]Component(nil), d.components...)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(comps))
	for _, comp := range comps {
		h, err := comp.Health(context.Background())
		switch {
		case err != nil:
			h = Unhealthy(comp.Name(), err)
		case h == nil:
			h = Unhealthy(comp.Name(), fmt.Errorf("no health reported"))
		}
		result[comp.Name()] = h
	}
	return result
}

// ComponentErrors flattens ComponentHealth for the /health endpoint: nil
// means healthy.
func (d *Daemon) ComponentErrors() map[string]error {
	out := make(map[string]error)
	for name, h := range d.ComponentHealth() {
		switch {
		case h.Healthy:
			out[name] = nil
		case h.Error != nil:
			out[name] = h.Error
		default:
			out[name] = fmt.Errorf("unhealthy")
		}
	}
	return out
}

func (d *Daemon) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(config.MustDuration(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval))
	defer ticker.Stop()

	last := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.observeHealth(last)
		}
	}
}

// observeHealth logs components whose health changed since the previous
// check and returns their names. last is updated in place.
func (d *Daemon) observeHealth(last map[string]bool) []string {
	var changed []string
	for name, h := range d.ComponentHealth() {
		prev, seen := last[name]
		last[name] = h.Healthy
		if seen && prev == h.Healthy {
			continue
		}
		if !seen && h.Healthy {
			continue
		}
		changed = append(changed, name)
		if h.Healthy {
			slog.Info("Component recovered", "component", name)
		} else {
			slog.Warn("Component unhealthy", "component", name, "error", h.Error)
		}
	}
	return changed
}
