package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veesix-networks/netbridge/pkg/dhcp"
)

func init() {
	Register("lease.active", func(logger *slog.Logger) (MetricHandler, error) {
		return &LeaseHandler{
			active: prometheus.NewDesc(
				"netbridge_lease_active",
				"Leases currently held, by family.",
				[]string{"family"}, nil,
			),
			lastError: prometheus.NewDesc(
				"netbridge_lease_last_error",
				"1 when the family's last error slot is set.",
				[]string{"family"}, nil,
			),
		}, nil
	})
}

type LeaseHandler struct {
	active    *prometheus.Desc
	lastError *prometheus.Desc
}

func (h *LeaseHandler) Name() string { return "lease.active" }

func (h *LeaseHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.active
	ch <- h.lastError
}

func (h *LeaseHandler) Collect(ctx context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Lease == nil {
		return nil
	}

	counts := make(map[dhcp.Family]int, len(dhcp.Families))
	for _, s := range src.Lease.Sessions() {
		counts[s.Family]++
	}
	errs := src.Lease.LastErrors()

	for _, f := range dhcp.Families {
		ch <- prometheus.MustNewConstMetric(h.active, prometheus.GaugeValue, float64(counts[f]), f.String())
		set := 0.0
		if errs[f] != "" {
			set = 1
		}
		ch <- prometheus.MustNewConstMetric(h.lastError, prometheus.GaugeValue, set, f.String())
	}
	return nil
}
