package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CronJobMetrics records run counts and durations per job. One instance is
// shared by the whole cron service.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cleaned  *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	factory := promauto.With(reg)
	return &CronJobMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Number of cron job executions.",
		}, []string{"job"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_failures_total",
			Help: "Number of cron job executions that returned an error.",
		}, []string{"job"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of cron job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		cleaned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_records_cleaned_total",
			Help: "Number of records removed by cleanup jobs.",
		}, []string{"job"}),
	}
}

func (m *CronJobMetrics) ObserveRun(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
	m.duration.WithLabelValues(job).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(job).Inc()
	}
}

func (m *CronJobMetrics) AddCleaned(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleaned.WithLabelValues(job).Add(float64(n))
}
