package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daemon"
	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/store"
)

const engineHealthTimeout = 2 * time.Second

// EngineComponent opens the configured store and runs the engine on it.
type EngineComponent struct {
	cfg         *config.Config
	notifier    *NotifierComponent
	engine      *engine.Engine
	initialized bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewEngineComponent(cfg *config.Config, notifier *NotifierComponent) *EngineComponent {
	return &EngineComponent{cfg: cfg, notifier: notifier}
}

func (e *EngineComponent) Name() string {
	return "Engine"
}

func (e *EngineComponent) Dependencies() []string {
	return []string{"Notifier"}
}

func (e *EngineComponent) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Engine init cancelled: %w", ctx.Err())
	default:
	}

	if e.notifier == nil || e.notifier.Broker() == nil {
		return fmt.Errorf("notifier not initialized")
	}

	opts, err := engine.OptionsFromConfig(e.cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine options: %w", err)
	}

	kv, err := store.Open(ctx, e.cfg.Store)
	if err != nil {
		if strings.Contains(err.Error(), "is locked by another instance") {
			return fmt.Errorf("workspace %s is locked by another instance: %w", e.cfg.Store.WorkspaceID, err)
		}
		return fmt.Errorf("open store: %w", err)
	}

	eng, err := engine.New(ctx, kv, e.notifier.Broker(), opts)
	if err != nil {
		_ = kv.Close()
		return fmt.Errorf("start engine: %w", err)
	}

	e.engine = eng
	e.initialized = true
	e.startTime = time.Now()
	slog.Info("Engine initialized", "component", e.Name(), "store", store.ResolveBackend(e.cfg.Store))
	return nil
}

// Start is a no-op: the engine runs from Init so dependents can read state
// while they initialize.
func (e *EngineComponent) Start(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return fmt.Errorf("Engine not initialized")
	}
	return nil
}

func (e *EngineComponent) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		slog.Info("Engine not initialized, skipping stop", "component", e.Name())
		return nil
	}

	slog.Info("Stopping engine...", "component", e.Name())
	if err := e.engine.Flush(ctx); err != nil {
		slog.Warn("Engine flush failed", "component", e.Name(), "error", err)
	}
	err := e.engine.Close(ctx)
	e.initialized = false
	if err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	slog.Info("Engine stopped", "component", e.Name(), "uptime", time.Since(e.startTime))
	return nil
}

// Health round-trips through the engine's inbox.
func (e *EngineComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return daemon.Unhealthy(e.Name(), fmt.Errorf("not initialized")), nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, engineHealthTimeout)
	defer cancel()
	if _, err := e.engine.Stats(pingCtx); err != nil {
		return daemon.Unhealthy(e.Name(), err), nil
	}
	return daemon.Healthy(e.Name()), nil
}

func (e *EngineComponent) Engine() *engine.Engine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engine
}
