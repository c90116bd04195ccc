// Package metrics holds the collect-time metric handlers. Each handler reads
// the current state from Source when Prometheus scrapes.
package metrics

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/events"
)

// Source is what handlers may read at scrape time.
type Source struct {
	Lease *lease.Adapter
	Bus   events.Bus
}

type MetricHandler interface {
	Name() string
	Describe(ch chan<- *prometheus.Desc)
	Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error
}

type MetricHandlerFactory func(logger *slog.Logger) (MetricHandler, error)

type MetricHandlerRegistry struct {
	mu        sync.RWMutex
	factories map[string]MetricHandlerFactory
}

var defaultRegistry = &MetricHandlerRegistry{
	factories: make(map[string]MetricHandlerFactory),
}

func DefaultRegistry() *MetricHandlerRegistry {
	return defaultRegistry
}

func Register(name string, factory MetricHandlerFactory) {
	defaultRegistry.RegisterFactory(name, factory)
}

func (r *MetricHandlerRegistry) RegisterFactory(name string, factory MetricHandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// CreateHandlers builds every registered handler in name order. Handlers
// that fail to build are logged and left out.
func (r *MetricHandlerRegistry) CreateHandlers(logger *slog.Logger) []MetricHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	handlers := make([]MetricHandler, 0, len(names))
	for _, name := range names {
		handler, err := r.factories[name](logger)
		if err != nil {
			logger.Error("Failed to create metric handler", "name", name, "error", err)
			continue
		}
		handlers = append(handlers, handler)
	}
	return handlers
}
