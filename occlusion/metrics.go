package occlusion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sowilo_graph_search_duration_seconds",
		Help:    "The time spent finding the visible sections.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	searchVisited = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_graph_search_visited_sections",
		Help: "The number of sections visited by the last search.",
	})

	searchRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_graph_search_regions",
		Help: "The number of regions traversed by the last search.",
	})
)

func instrumentSearch(s SearchStats) {
	searchDuration.Observe(s.Duration.Seconds())
	searchVisited.Set(float64(s.Visited))
	searchRegions.Set(float64(s.Regions))
}
