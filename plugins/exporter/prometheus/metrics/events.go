package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Register("events.bus", func(logger *slog.Logger) (MetricHandler, error) {
		return &BusHandler{
			published: prometheus.NewDesc("netbridge_events_published_total", "Events accepted by the bus.", nil, nil),
			dropped:   prometheus.NewDesc("netbridge_events_dropped_total", "Events dropped because the bus queue was full.", nil, nil),
			queued:    prometheus.NewDesc("netbridge_events_queued", "Events waiting for delivery.", nil, nil),
		}, nil
	})
}

type BusHandler struct {
	published *prometheus.Desc
	dropped   *prometheus.Desc
	queued    *prometheus.Desc
}

func (h *BusHandler) Name() string { return "events.bus" }

func (h *BusHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.published
	ch <- h.dropped
	ch <- h.queued
}

func (h *BusHandler) Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Bus == nil {
		return nil
	}
	st := src.Bus.Stats()
	ch <- prometheus.MustNewConstMetric(h.published, prometheus.CounterValue, float64(st.Published))
	ch <- prometheus.MustNewConstMetric(h.dropped, prometheus.CounterValue, float64(st.Dropped))
	ch <- prometheus.MustNewConstMetric(h.queued, prometheus.GaugeValue, float64(st.PublishChLen))
	return nil
}
