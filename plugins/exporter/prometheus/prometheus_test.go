package prometheus

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/plugins/exporter/prometheus/metrics"
)

func scrape(t *testing.T, c *Component) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestCountersFromEvents(t *testing.T) {
	c := newComponent("127.0.0.1:0", events.Nop{}, metrics.Source{})

	c.counters.observe(events.Event{Data: events.LeaseEvent{Family: "v4", Op: "request", Success: true}})
	c.counters.observe(events.Event{Data: events.LeaseEvent{Family: "v4", Op: "request", Success: false}})
	c.counters.observe(events.Event{Data: events.LeaseEvent{Family: "v4", Op: "request", Success: true}})
	c.counters.observe(events.Event{Data: events.BindingEvent{Op: binder.OpBindSocket, Code: -9}})
	c.counters.observe(events.Event{Data: events.BindingEvent{Op: binder.OpReset, Code: 4}})

	body := scrape(t, c)
	for _, want := range []string{
		`netbridge_lease_operations_total{family="v4",op="request",result="success"} 2`,
		`netbridge_lease_operations_total{family="v4",op="request",result="failure"} 1`,
		`netbridge_bind_operations_total{op="bind_socket",result="failure"} 1`,
		`netbridge_bind_operations_total{op="reset",result="success"} 1`,
		`netbridge_reset_sockets_total 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestStartRegistersHandlers(t *testing.T) {
	c := newComponent("127.0.0.1:0", events.Nop{}, metrics.Source{Bus: events.Nop{}})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop(context.Background())

	body := scrape(t, c)
	if !strings.Contains(body, "netbridge_events_published_total 0") {
		t.Fatalf("bus metrics missing:\n%s", body)
	}
}
