package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	updateTypeLabel = "update_type"
)

var (
	markedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_scheduler_marked_count",
		Help: "The number of build requests.",
	}, []string{
		updateTypeLabel,
	})

	submittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_scheduler_submitted_count",
		Help: "The number of submitted builds.",
	}, []string{
		updateTypeLabel,
	})

	cancelledCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_scheduler_cancelled_count",
		Help: "The number of running builds cancelled.",
	})

	supersededCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_scheduler_superseded_count",
		Help: "The number of uploads ignored because a newer build was submitted.",
	})
)

func instrumentMarked(t UpdateType) {
	markedCount.With(prometheus.Labels{updateTypeLabel: t.String()}).Inc()
}

func instrumentSubmitted(t UpdateType) {
	submittedCount.With(prometheus.Labels{updateTypeLabel: t.String()}).Inc()
}

func instrumentCancelled() {
	cancelledCount.Inc()
}

func instrumentSuperseded() {
	supersededCount.Inc()
}
