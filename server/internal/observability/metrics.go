package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netvalue_mutations_total",
		Help: "Connection mutations by operation and result",
	}, []string{"operation", "result"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netvalue_mutation_duration_seconds",
		Help:    "Duration of connection mutations including the local value update",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	recalcRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netvalue_recalc_runs_total",
		Help: "Full recalculation runs by result",
	}, []string{"result"})

	recalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netvalue_recalc_duration_seconds",
		Help:    "Duration of full recalculation runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	recalcIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netvalue_recalc_iterations",
		Help:    "Fixed-point iterations per recalculation run",
		Buckets: prometheus.LinearBuckets(5, 5, 10),
	})

	recalcNodesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netvalue_recalc_nodes_written_total",
		Help: "Network values written by recalculation runs",
	})

	recalcStaleSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netvalue_recalc_stale_skips_total",
		Help: "Network values skipped because an interactive update was newer than the snapshot",
	})

	recalcFailedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netvalue_recalc_failed_chunks_total",
		Help: "Recalculation write chunks that failed after retries",
	})
)

// RecordMutation records the outcome of a connection mutation.
func RecordMutation(operation string, err error, duration time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	mutationTotal.WithLabelValues(operation, result).Inc()
	mutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecalcStats is the subset of a job summary exported as metrics.
type RecalcStats struct {
	Iterations   int
	NodesWritten int
	SkippedStale int
	FailedChunks int
	Duration     time.Duration
}

// RecordRecalc records one recalculation run.
func RecordRecalc(stats RecalcStats, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	recalcRunsTotal.WithLabelValues(result).Inc()
	recalcDuration.Observe(stats.Duration.Seconds())
	recalcIterations.Observe(float64(stats.Iterations))
	recalcNodesWritten.Add(float64(stats.NodesWritten))
	recalcStaleSkips.Add(float64(stats.SkippedStale))
	recalcFailedChunks.Add(float64(stats.FailedChunks))
}
