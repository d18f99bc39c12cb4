package sim

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	frameCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_sim_frame_count",
		Help: "The number of simulated frames.",
	})

	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sowilo_sim_frame_duration_seconds",
		Help:    "The time taken to simulate a frame.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	loadedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_sim_loaded_chunks",
		Help: "The number of loaded chunk columns.",
	})

	editCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_sim_edit_count",
		Help: "The number of applied block edits.",
	})
)

func instrumentFrame(r FrameReport) {
	frameCount.Inc()
	frameDuration.Observe(r.Duration.Seconds())
	loadedChunks.Set(float64(r.LoadedChunks))
}

func instrumentEdits(n int) {
	editCount.Add(float64(n))
}

func defaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}
