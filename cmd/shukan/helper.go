package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/adapter"
	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/formatter"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/store"

	"github.com/spf13/cobra"
)

const engineCloseTimeout = 5 * time.Second

func resolveWorkspaceID(cmd *cobra.Command) string {
	workspaceID, _ := cmd.Flags().GetString("workspace")
	return workspaceID
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withEngine opens the configured store, runs fn against a fresh engine and
// closes it again. A nil publisher prints notifications to the command's
// output.
func withEngine(cmd *cobra.Command, publisher notify.Publisher, fn func(ctx context.Context, e *engine.Engine) error) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	ctx := commandContext(cmd)

	opts, err := engine.OptionsFromConfig(cfg.Engine)
	if err != nil {
		return fmt.Errorf("engine options: %w", err)
	}
	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if publisher == nil {
		publisher = newConsolePublisher(cmd.OutOrStdout())
	}
	e, err := engine.New(ctx, kv, publisher, opts)
	if err != nil {
		_ = kv.Close()
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), engineCloseTimeout)
		defer cancel()
		if err := e.Close(closeCtx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: closing engine: %v\n", err)
		}
	}()

	return fn(ctx, e)
}

func outputFormatter(cmd *cobra.Command) (formatter.Formatter, error) {
	value, _ := cmd.Flags().GetString("output")
	format, err := formatter.ParseOutputFormat(value)
	if err != nil {
		return nil, err
	}
	return formatter.New(format)
}

// render prints whatever a formatter method produced.
func render(cmd *cobra.Command, out string, err error) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// consolePublisher prints notifications the way chat adapters phrase them.
type consolePublisher struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsolePublisher(out io.Writer) *consolePublisher {
	return &consolePublisher{out: out}
}

func (c *consolePublisher) Publish(n notify.Notification) {
	text, ok := adapter.Format(n)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}
