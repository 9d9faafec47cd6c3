package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/shukan/internal/adapter"
	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daemon"
	"github.com/harunnryd/shukan/internal/notify"
)

// NotifierComponent owns the notification broker and relays it to the
// configured chat adapters.
type NotifierComponent struct {
	cfg         *config.NotifyConfig
	broker      *notify.Broker
	forwarder   *adapter.Forwarder
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewNotifierComponent(cfg *config.NotifyConfig) *NotifierComponent {
	return &NotifierComponent{cfg: cfg}
}

func (n *NotifierComponent) Name() string {
	return "Notifier"
}

func (n *NotifierComponent) Dependencies() []string {
	return []string{}
}

func (n *NotifierComponent) Init(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var cfg config.NotifyConfig
	if n.cfg != nil {
		cfg = *n.cfg
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = config.DefaultNotifyBufferSize
	}

	forwarder, err := adapter.NewForwarder(cfg)
	if err != nil {
		return fmt.Errorf("build notification forwarder: %w", err)
	}

	n.broker = notify.NewBrokerWithBuffer(bufferSize)
	n.forwarder = forwarder
	n.initialized = true

	names := make([]string, 0)
	for _, out := range forwarder.OutputAdapters() {
		names = append(names, out.Name())
	}
	slog.Info("Notifier initialized", "component", n.Name(), "adapters", names)
	return nil
}

func (n *NotifierComponent) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return fmt.Errorf("Notifier not initialized")
	}
	n.forwarder.Start(ctx, n.broker)
	n.started = true
	slog.Info("Notifier started", "component", n.Name())
	return nil
}

func (n *NotifierComponent) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return nil
	}
	var err error
	if n.started {
		err = n.forwarder.Stop(ctx)
		n.started = false
	}
	n.broker.Close()
	n.initialized = false
	slog.Info("Notifier stopped", "component", n.Name())
	return err
}

func (n *NotifierComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if !n.initialized {
		return daemon.Unhealthy(n.Name(), fmt.Errorf("not initialized")), nil
	}
	if !n.started {
		return daemon.Unhealthy(n.Name(), fmt.Errorf("not started")), nil
	}
	if err := n.forwarder.Health(ctx); err != nil {
		return daemon.Unhealthy(n.Name(), err), nil
	}
	return daemon.Healthy(n.Name()), nil
}

// Broker is nil until Init succeeds.
func (n *NotifierComponent) Broker() *notify.Broker {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.broker
}
