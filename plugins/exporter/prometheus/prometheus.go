// Package prometheus exports lease and binding activity on /metrics.
package prometheus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/pkg/component"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/plugins/exporter/prometheus/metrics"
)

const Namespace = "exporter.prometheus"

func init() {
	component.Register(Namespace, New)
}

type Component struct {
	*component.Base
	logger *slog.Logger
	bus    events.Bus
	source metrics.Source
	addr   string

	registry *prometheus.Registry
	counters *counters
	subs     []events.Subscription

	mu            sync.RWMutex
	server        *http.Server
	serverRunning bool
}

type Status struct {
	State         string `json:"state"`
	ListenAddress string `json:"listen_address,omitempty"`
	HandlerCount  int    `json:"handler_count,omitempty"`
}

// counters are fed from the event bus as calls happen.
type counters struct {
	leaseOps *prometheus.CounterVec
	bindOps  *prometheus.CounterVec
	reset    prometheus.Counter
}

func newCounters() *counters {
	return &counters{
		leaseOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_lease_operations_total",
			Help: "Lease adapter calls by family, operation and result.",
		}, []string{"family", "op", "result"}),
		bindOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbridge_bind_operations_total",
			Help: "Binder calls that reached the network daemon, by operation and result.",
		}, []string{"op", "result"}),
		reset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netbridge_reset_sockets_total",
			Help: "Sockets destroyed by interface connection resets.",
		}),
	}
}

func (c *counters) register(r *prometheus.Registry) {
	r.MustRegister(c.leaseOps, c.bindOps, c.reset)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (c *counters) observe(ev events.Event) {
	switch data := ev.Data.(type) {
	case events.LeaseEvent:
		c.leaseOps.WithLabelValues(data.Family, data.Op, result(data.Success)).Inc()
	case events.BindingEvent:
		c.bindOps.WithLabelValues(data.Op, result(data.Code >= 0)).Inc()
		if data.Op == binder.OpReset && data.Code > 0 {
			c.reset.Add(float64(data.Code))
		}
	}
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || !deps.Config.Exporter.Enabled {
		return nil, nil
	}

	addr := ":9090"
	if deps.Config.Exporter.ListenAddress != "" {
		addr = deps.Config.Exporter.ListenAddress
	}

	bus := deps.EventBus
	if bus == nil {
		bus = events.Nop{}
	}

	return newComponent(addr, bus, metrics.Source{Lease: deps.Lease, Bus: bus}), nil
}

func newComponent(addr string, bus events.Bus, src metrics.Source) *Component {
	c := &Component{
		Base:     component.NewBase(Namespace),
		logger:   logger.Get(logger.Exporter),
		bus:      bus,
		source:   src,
		addr:     addr,
		registry: prometheus.NewRegistry(),
		counters: newCounters(),
	}
	c.counters.register(c.registry)
	return c
}

func (c *Component) Addr() string {
	return c.addr
}

func (c *Component) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := "stopped"
	if c.serverRunning {
		state = "running"
	}
	return &Status{State: state, ListenAddress: c.addr}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting Prometheus exporter", "addr", c.addr)

	handlers := metrics.DefaultRegistry().CreateHandlers(c.logger)
	c.registry.MustRegister(&collector{source: c.source, logger: c.logger, handlers: handlers})
	c.logger.Info("Registered metric handlers", "count", len(handlers))

	c.subs = append(c.subs,
		c.bus.Subscribe(events.TopicLease, c.counters.observe),
		c.bus.Subscribe(events.TopicBinding, c.counters.observe),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	c.mu.Lock()
	c.server = &http.Server{
		Addr:              c.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.mu.Unlock()

	c.Go(c.serve)
	return nil
}

// Handler serves the exporter's registry.
func (c *Component) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Component) serve() {
	c.mu.Lock()
	srv := c.server
	c.serverRunning = true
	c.mu.Unlock()

	c.logger.Info("Prometheus HTTP server listening", "addr", c.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("Prometheus HTTP server error", "error", err)
	}

	c.mu.Lock()
	c.serverRunning = false
	c.mu.Unlock()
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Prometheus exporter")

	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil

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

type collector struct {
	source   metrics.Source
	logger   *slog.Logger
	handlers []metrics.MetricHandler
}

func (pc *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, handler := range pc.handlers {
		handler.Describe(ch)
	}
}

func (pc *collector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	for _, handler := range pc.handlers {
		if err := handler.Collect(ctx, pc.source, ch); err != nil {
			pc.logger.Error("Failed to collect metrics", "handler", handler.Name(), "error", err)
		}
	}
}
