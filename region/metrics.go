package region

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	regionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_region_count",
		Help: "The number of loaded regions.",
	})

	regionCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_region_count_total",
		Help: "The total number of created regions.",
	})
)

func instrumentRegionCreated() {
	regionCount.Inc()
	regionCountTotal.Inc()
}

func instrumentRegionDeleted() {
	regionCount.Dec()
}
