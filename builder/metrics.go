package builder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "err_type"
)

var (
	jobCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_builder_job_count",
		Help: "The number of finished build jobs.",
	}, []string{
		errTypeLabel,
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sowilo_builder_job_duration_seconds",
		Help:    "The time spent building a section.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	queuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_builder_queued_jobs",
		Help: "The number of jobs waiting for a worker.",
	})
)

func instrumentJob(errType string, duration time.Duration) {
	jobCount.With(prometheus.Labels{errTypeLabel: errType}).Inc()
	if duration > 0 {
		jobDuration.Observe(duration.Seconds())
	}
}

func instrumentQueued(n int) {
	queuedJobs.Set(float64(n))
}
