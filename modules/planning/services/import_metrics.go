package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type importMetrics struct {
	jobsTotal *prometheus.CounterVec
	rowsTotal *prometheus.CounterVec

	jobDuration *prometheus.HistogramVec

	jobsActive prometheus.Gauge
}

var importMetricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		jobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planventa",
			Subsystem: "import",
			Name:      "jobs_total",
			Help:      "Total number of import jobs that reached a terminal status.",
		}, []string{"mode", "status"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planventa",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of settled import rows.",
		}, []string{"outcome"}),
		jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planventa",
			Subsystem: "import",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of import job processing.",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10,
				30, 60, 120, 300,
			},
		}, []string{"mode"}),
		jobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "planventa",
			Subsystem: "import",
			Name:      "jobs_active",
			Help:      "Number of import jobs currently being executed.",
		}),
	}
})

func getImportMetrics() *importMetrics {
	return importMetricsSingleton()
}
