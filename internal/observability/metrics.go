package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors exported by the gateway.
type Metrics struct {
	registry *prometheus.Registry

	// SourceRequests counts outbound RPCs by action and outcome.
	SourceRequests *prometheus.CounterVec

	// GuideRefreshes counts refresh cycles by result
	// (ok, skipped_empty, failed).
	GuideRefreshes *prometheus.CounterVec

	// LastRefreshUnix is the unix timestamp of the last successful refresh.
	LastRefreshUnix prometheus.Gauge

	// GuideChannels is the channel count of the last written document.
	GuideChannels prometheus.Gauge

	// GuideProgrammes is the programme count of the last written document.
	GuideProgrammes prometheus.Gauge
}

// NewMetrics creates a Metrics instance backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locastarr",
			Name:      "source_requests_total",
			Help:      "Outbound RPCs to the locast endpoint by action and outcome.",
		}, []string{"action", "outcome"}),
		GuideRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locastarr",
			Name:      "guide_refreshes_total",
			Help:      "Guide refresh cycles by result.",
		}, []string{"result"}),
		LastRefreshUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "locastarr",
			Name:      "guide_last_refresh_timestamp_seconds",
			Help:      "Unix timestamp of the last successful guide refresh.",
		}),
		GuideChannels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "locastarr",
			Name:      "guide_channels",
			Help:      "Channel count of the last written guide document.",
		}),
		GuideProgrammes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "locastarr",
			Name:      "guide_programmes",
			Help:      "Programme count of the last written guide document.",
		}),
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSourceRequest records one outbound RPC.
func (m *Metrics) ObserveSourceRequest(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SourceRequests.WithLabelValues(action, outcome).Inc()
}
