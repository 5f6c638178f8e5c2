package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "p2prates"

// Metrics are the engine run counters
type Metrics struct {
	runs          prometheus.Counter
	bases         *prometheus.CounterVec
	missingBases  *prometheus.CounterVec
	savedRates    prometheus.Counter
	saveFailures  prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	runDuration   prometheus.Histogram
}

// NewMetrics creates the engine metrics and registers them, if a registerer is given
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Number of completed engine runs",
		}),
		bases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "base_prices_total",
			Help:      "Number of selected market base prices",
		}, []string{"side"}),
		missingBases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "missing_base_prices_total",
			Help:      "Number of markets without an eligible offer",
		}, []string{"label", "side"}),
		savedRates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "saved_rates_total",
			Help:      "Number of appended named rates",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "save_failures_total",
			Help:      "Number of rejected rate writes",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "page_cache_hits_total",
			Help:      "Number of order book pages served from the run cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "page_cache_misses_total",
			Help:      "Number of order book pages fetched upstream",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the engine runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.runs,
			m.bases,
			m.missingBases,
			m.savedRates,
			m.saveFailures,
			m.cacheHits,
			m.cacheMisses,
			m.runDuration,
		)
	}

	return m
}
