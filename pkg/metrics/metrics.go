package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Record store metrics
	RecordsLoaded  prometheus.Counter
	RecordsSaved   prometheus.Counter
	RecordsSkipped *prometheus.CounterVec
	StoreLatency   *prometheus.HistogramVec

	// Collection metrics
	Mutations       *prometheus.CounterVec
	PatientsTracked prometheus.Gauge

	// Statistics metrics
	TallyRuns      prometheus.Counter
	TallyCacheHits prometheus.Counter
	TallyLatency   prometheus.Histogram
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		// Record store metrics
		RecordsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_loaded_total",
			Help:      "Total number of records normalized from the store",
		}),
		RecordsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_saved_total",
			Help:      "Total number of records written back to the store",
		}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped during load",
		}, []string{"reason"}),
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of record store operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		// Collection metrics
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mutations_total",
			Help:      "Total number of collection mutations",
		}, []string{"operation", "status"}),
		PatientsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patients_tracked",
			Help:      "Current number of patients in the collection",
		}),

		// Statistics metrics
		TallyRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tally_runs_total",
			Help:      "Total number of procedure tallies computed",
		}),
		TallyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tally_cache_hits_total",
			Help:      "Total number of tallies served from cache",
		}),
		TallyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tally_duration_seconds",
			Help:      "Time spent computing procedure tallies",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
}

// New creates the same metric set without registering it, for embedding
// in tests or callers that manage their own registry.
func New(namespace string) *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total number of records normalized from the store",
		}),
		RecordsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_saved_total",
			Help:      "Total number of records written back to the store",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped during load",
		}, []string{"reason"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of record store operations",
		}, []string{"operation"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Total number of collection mutations",
		}, []string{"operation", "status"}),
		PatientsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patients_tracked",
			Help:      "Current number of patients in the collection",
		}),
		TallyRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tally_runs_total",
			Help:      "Total number of procedure tallies computed",
		}),
		TallyCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tally_cache_hits_total",
			Help:      "Total number of tallies served from cache",
		}),
		TallyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tally_duration_seconds",
			Help:      "Time spent computing procedure tallies",
		}),
	}
}
