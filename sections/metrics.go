package sections

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	reasonLabel = "reason"

	dropReasonDisposed  = "disposed"
	dropReasonStale     = "stale"
	dropReasonDuplicate = "duplicate"
)

var (
	sectionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_section_count",
		Help: "The number of tracked sections.",
	})

	visibleSectionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_visible_section_count",
		Help: "The number of visible sections with geometry.",
	})

	uploadedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_section_uploaded_count",
		Help: "The number of committed build results.",
	})

	droppedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_section_dropped_result_count",
		Help: "The number of build results dropped on arrival.",
	}, []string{
		reasonLabel,
	})
)

func instrumentSections(n int) {
	sectionCount.Set(float64(n))
}

func instrumentVisible(n int) {
	visibleSectionCount.Set(float64(n))
}

func instrumentUploaded() {
	uploadedCount.Inc()
}

func instrumentDropped(reason string) {
	droppedCount.With(prometheus.Labels{reasonLabel: reason}).Inc()
}
