package world

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generatedColumns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_world_generated_column_count",
		Help: "The number of generated chunk columns.",
	})

	cloneCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_world_clone_cache_lookup_count",
		Help: "The number of section clone cache lookups.",
	}, []string{"result"})
)

func instrumentGeneratedColumn() {
	generatedColumns.Inc()
}

func instrumentCloneCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cloneCacheLookups.WithLabelValues(result).Inc()
}
