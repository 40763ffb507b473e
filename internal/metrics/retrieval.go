package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalPages = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "receiptdex",
			Name:      "retrieval_pages",
			Help:      "Store pages fetched per retrieval",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)

	RetrievalRecords = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "receiptdex",
			Name:      "retrieval_records",
			Help:      "Records returned per retrieval",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"mode"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "retrieval_errors_total",
			Help:      "Retrievals aborted by an error",
		},
		[]string{"stage"},
	)

	InterpretDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "interpret_degraded_total",
			Help:      "Queries whose model output could not be parsed",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalPages)
	prometheus.MustRegister(RetrievalRecords)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(InterpretDegradedTotal)
	retrievalMetricsRegistered = true
}
