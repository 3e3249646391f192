package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts periodic job outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	Skipped     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_scheduler_runs_total",
			Help: "Periodic job runs by job and result",
		}, []string{"job", "result"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exposure_scheduler_run_duration_seconds",
			Help:    "Duration of periodic job runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		Skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exposure_scheduler_skipped_total",
			Help: "Ticks skipped because the previous run was still in progress",
		}, []string{"job"}),
	}
}

func (m *Metrics) observe(job string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Runs.WithLabelValues(job, result).Inc()
	m.RunDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *Metrics) skipped(job string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(job).Inc()
}
