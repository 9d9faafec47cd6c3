package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/shukan/internal/api"
	"github.com/harunnryd/shukan/internal/concurrency"
	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daemon"
)

type HTTPServerComponent struct {
	daemon       *daemon.Daemon
	cfg          *config.ServerConfig
	engineComp   *EngineComponent
	dependencies []string
	server       *http.Server
	listener     net.Listener
	shutdownTTL  time.Duration
	initialized  bool
	started      bool
	serveErr     error
	mu           sync.RWMutex
	startTime    time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.ServerConfig, engineComp *EngineComponent) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(d, cfg, engineComp, []string{"Engine"})
}

func NewHTTPServerComponentWithDependencies(d *daemon.Daemon, cfg *config.ServerConfig, engineComp *EngineComponent, dependencies []string) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:       d,
		cfg:          cfg,
		engineComp:   engineComp,
		dependencies: append([]string(nil), dependencies...),
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return append([]string(nil), h.dependencies...)
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.engineComp == nil || h.engineComp.Engine() == nil {
		return fmt.Errorf("engine not initialized")
	}

	readTimeout, err := config.DurationOrDefault(h.cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	var status api.ComponentStatus
	if h.daemon != nil {
		status = h.daemon.ComponentErrors
	}
	handler := api.NewHandler(h.engineComp.Engine(), status)

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Port)
	return nil
}

// Start binds the port before returning, so a port clash fails startup.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	concurrency.Go("http-server", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
			h.setServeErr(err)
		}
	}, h.setServeErr)

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) setServeErr(err error) {
	h.mu.Lock()
	h.serveErr = err
	h.mu.Unlock()
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not initialized")), nil
	}
	if !h.started {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not started")), nil
	}
	if h.serveErr != nil {
		return daemon.Unhealthy(h.Name(), h.serveErr), nil
	}
	return daemon.Healthy(h.Name()), nil
}

// Addr is the bound address once started.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}
