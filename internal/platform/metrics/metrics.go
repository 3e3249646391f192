package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide instruments that do not belong to a domain package.
type Metrics struct {
	Registry  *prometheus.Registry
	BuildInfo *prometheus.GaugeVec
	StoreUp   *prometheus.GaugeVec
}

// New creates a registry carrying the Go runtime and process collectors plus
// the application gauges. Domain packages register their own instruments on
// Registry.
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	m := &Metrics{
		Registry: reg,
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exposure_build_info",
			Help: "Build information of the running binary",
		}, []string{"version"}),
		StoreUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exposure_store_up",
			Help: "Whether the last readiness probe reached the store (1) or not (0)",
		}, []string{"store"}),
	}
	m.BuildInfo.WithLabelValues(version).Set(1)
	return m
}

// SetStoreUp records the outcome of a readiness probe for store.
func (m *Metrics) SetStoreUp(store string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.StoreUp.WithLabelValues(store).Set(v)
}
