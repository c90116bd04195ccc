// Package api serves the lease adapter and the binder over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/component"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/version"
)

const Namespace = "northbound.api"

func init() {
	component.Register(Namespace, NewComponent)
}

type Component struct {
	*component.Base
	logger  *slog.Logger
	lease   *lease.Adapter
	binder  *binder.Binder
	addr    string
	timeout time.Duration

	mu      sync.RWMutex
	server  *http.Server
	running bool
}

func NewComponent(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || !deps.Config.API.Enabled {
		return nil, nil
	}

	addr := ":8080"
	if deps.Config.API.ListenAddress != "" {
		addr = deps.Config.API.ListenAddress
	}

	return New(addr, deps.Config.API.Timeout, deps.Lease, deps.Binder), nil
}

func New(addr string, timeout time.Duration, l *lease.Adapter, b *binder.Binder) *Component {
	return &Component{
		Base:    component.NewBase(Namespace),
		logger:  logger.Get(logger.Northbound),
		lease:   l,
		binder:  b,
		addr:    addr,
		timeout: timeout,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting API server", "addr", c.addr)

	c.mu.Lock()
	c.server = &http.Server{
		Addr:              c.addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.mu.Unlock()

	c.Go(c.serve)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping API server")

	c.mu.RLock()
	srv := c.server
	c.mu.RUnlock()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	c.StopContext()
	return nil
}

func (c *Component) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := "stopped"
	if c.running {
		state = "running"
	}

	return &Status{
		State:         state,
		ListenAddress: c.addr,
		Running:       c.running,
		Version:       version.Version,
	}
}

// Handler returns the API routes. Lease calls are bounded by the configured
// timeout.
func (c *Component) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/lease/{family}/{iface}/{op}", c.handleLease)
	mux.HandleFunc("GET /api/lease/{family}/error", c.handleLastError)
	mux.HandleFunc("GET /api/lease/sessions", c.handleSessions)
	mux.HandleFunc("GET /api/interface/{iface}/raflags", c.handleRAFlags)

	mux.HandleFunc("GET /api/network/process", c.handleGetNetwork)
	mux.HandleFunc("POST /api/network/process", c.handleBindProcess)
	mux.HandleFunc("POST /api/network/resolver", c.handleBindResolver)
	mux.HandleFunc("POST /api/network/reset", c.handleReset)

	mux.HandleFunc("GET /api/openapi.json", c.handleOpenAPI)

	return mux
}

func (c *Component) serve() {
	c.mu.Lock()
	srv := c.server
	c.running = true
	c.mu.Unlock()

	c.logger.Info("API server listening", "addr", c.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("API server error", "error", err)
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
