package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/concurrency"
	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/notify"
)

const sendTimeout = 10 * time.Second

type Subscriber interface {
	Subscribe(ctx context.Context) <-chan notify.Notification
}

// Forwarder relays notifications from the broker to every configured chat.
type Forwarder struct {
	mu      sync.RWMutex
	outputs []OutputAdapter
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewForwarder builds the chat adapters enabled in cfg. With none enabled
// the forwarder holds a single null adapter.
func NewForwarder(cfg config.NotifyConfig) (*Forwarder, error) {
	var outputs []OutputAdapter

	if cfg.Telegram.Enabled {
		token := strings.TrimSpace(cfg.Telegram.BotToken)
		if token == "" {
			return nil, fmt.Errorf("notify.telegram.bot_token is required when telegram notifier is enabled")
		}
		if cfg.Telegram.ChatID == 0 {
			return nil, fmt.Errorf("notify.telegram.chat_id is required when telegram notifier is enabled")
		}
		outputs = append(outputs, NewTelegramAdapter(token, cfg.Telegram.ChatID))
	}

	if cfg.Slack.Enabled {
		token := strings.TrimSpace(cfg.Slack.BotToken)
		if token == "" {
			return nil, fmt.Errorf("notify.slack.bot_token is required when slack notifier is enabled")
		}
		channel := strings.TrimSpace(cfg.Slack.ChannelID)
		if channel == "" {
			return nil, fmt.Errorf("notify.slack.channel_id is required when slack notifier is enabled")
		}
		outputs = append(outputs, NewSlackAdapter(token, channel))
	}

	if len(outputs) == 0 {
		outputs = append(outputs, NewNullAdapter("null"))
	}
	return NewForwarderWith(outputs...), nil
}

func NewForwarderWith(outputs ...OutputAdapter) *Forwarder {
	return &Forwarder{outputs: dedupeOutputAdapters(outputs)}
}

func (f *Forwarder) OutputAdapters() []OutputAdapter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]OutputAdapter, len(f.outputs))
	copy(out, f.outputs)
	return out
}

// Start connects every adapter and begins relaying from sub. An adapter
// that fails to connect is dropped with an error log.
func (f *Forwarder) Start(ctx context.Context, sub Subscriber) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true

	connected := make([]OutputAdapter, 0, len(f.outputs))
	for _, output := range f.outputs {
		if err := output.Start(ctx); err != nil {
			slog.Error("Output adapter failed to start", "adapter", output.Name(), "error", err)
			continue
		}
		connected = append(connected, output)
	}
	f.outputs = connected

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	events := sub.Subscribe(runCtx)
	concurrency.Go("notify-forwarder", func() {
		defer close(done)
		for n := range events {
			f.forward(runCtx, n)
		}
	}, nil)
}

func (f *Forwarder) forward(ctx context.Context, n notify.Notification) {
	text, ok := Format(n)
	if !ok {
		return
	}
	for _, output := range f.OutputAdapters() {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		if err := output.Send(sendCtx, text); err != nil {
			slog.Error("Failed to forward notification", "adapter", output.Name(), "kind", n.Kind, "error", err)
		}
		cancel()
	}
}

func (f *Forwarder) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = false
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Forwarder) Health(ctx context.Context) error {
	for _, output := range f.OutputAdapters() {
		if err := output.Health(ctx); err != nil {
			return fmt.Errorf("output adapter %s unhealthy: %w", output.Name(), err)
		}
	}
	return nil
}

func dedupeOutputAdapters(adapters []OutputAdapter) []OutputAdapter {
	if len(adapters) == 0 {
		return nil
	}
	indexByName := make(map[string]int, len(adapters))
	ordered := make([]OutputAdapter, 0, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.TrimSpace(adapter.Name())
		if name == "" {
			continue
		}
		if idx, exists := indexByName[name]; exists {
			ordered[idx] = adapter
			continue
		}
		indexByName[name] = len(ordered)
		ordered = append(ordered, adapter)
	}
	return ordered
}
