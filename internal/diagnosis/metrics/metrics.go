package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the diagnosis repository.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Subscribers       prometheus.Gauge
	Notifications     prometheus.Counter
	ObsoleteDeleted   prometheus.Counter
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_diagnosis_operations_total",
			Help: "Diagnosis repository operations by operation and result",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exposure_diagnosis_operation_duration_ms",
			Help:    "Latency of diagnosis repository operations in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}, []string{"operation"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exposure_diagnosis_subscribers",
			Help: "Current number of live diagnosis collection observers",
		}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "exposure_diagnosis_notifications_total",
			Help: "Total number of snapshots pushed to observers",
		}),
		ObsoleteDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "exposure_diagnosis_obsolete_deleted_total",
			Help: "Total number of diagnoses removed by retention cleanup",
		}),
	}
}

func (m *Metrics) ObserveOperation(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(float64(elapsed.Microseconds()) / 1000.0)
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.Subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.Subscribers.Dec()
}

func (m *Metrics) AddNotifications(n int) {
	if m == nil {
		return
	}
	m.Notifications.Add(float64(n))
}

func (m *Metrics) AddObsoleteDeleted(n int64) {
	if m == nil {
		return
	}
	m.ObsoleteDeleted.Add(float64(n))
}
