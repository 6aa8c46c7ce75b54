package kpi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for report generation.
type Metrics struct {
	sourceFailures *prometheus.CounterVec
	gatherDuration prometheus.Histogram
	reports        *prometheus.CounterVec
	superseded     prometheus.Counter
}

// NewMetrics registers the KPI collectors against registerer. A nil
// registerer leaves the collectors unregistered, which suits tests.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_kpi_source_failures_total",
			Help: "Gather sources that failed after retries, by source.",
		}, []string{"source"}),
		gatherDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "odyssey_kpi_gather_duration_seconds",
			Help:    "Wall time of the concurrent gather phase.",
			Buckets: prometheus.DefBuckets,
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_kpi_reports_total",
			Help: "Generated KPI reports by completeness.",
		}, []string{"completeness"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_kpi_refresh_superseded_total",
			Help: "Refresh results discarded because a newer request was issued.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.sourceFailures, m.gatherDuration, m.reports, m.superseded)
	}
	return m
}

func (m *Metrics) sourceFailed(source Source) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) observeGather(d time.Duration) {
	if m == nil {
		return
	}
	m.gatherDuration.Observe(d.Seconds())
}

func (m *Metrics) reportGenerated(c Completeness) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(string(c)).Inc()
}

func (m *Metrics) refreshSuperseded() {
	if m == nil {
		return
	}
	m.superseded.Inc()
}
