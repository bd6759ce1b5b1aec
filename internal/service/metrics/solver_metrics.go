package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SolverOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "impvol",
			Subsystem: "solver",
			Name:      "outcomes_total",
			Help:      "Implied volatility solves by result status and option type",
		},
		[]string{"status", "type"},
	)

	SolverIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "impvol",
			Subsystem: "solver",
			Name:      "iterations",
			Help:      "Brent iterations used by converged solves",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32, 64, 128, 200},
		},
	)

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "impvol",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of pricing endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "impvol",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by pricing endpoint",
		},
		[]string{"endpoint"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "impvol",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Solve cache lookups by result",
		},
		[]string{"result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(SolverOutcomes, SolverIterations, APILatency, APIErrors, CacheLookups)
	})
}
