package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language model Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "llm_requests_total",
			Help:      "Total number of language model completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "receiptdex",
			Name:      "llm_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"provider", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "llm_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "total"
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "llm_errors_total",
			Help:      "Total language model errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	LLMBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "receiptdex",
			Name:      "llm_budget_tokens_remaining",
			Help:      "Remaining token budget",
		},
		[]string{"provider", "period"},
	)

	LLMCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "llm_cache_total",
			Help:      "Completion cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers language model metrics. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMErrorsTotal)
	prometheus.MustRegister(LLMBudgetTokensRemaining)
	prometheus.MustRegister(LLMCacheTotal)
	llmMetricsRegistered = true
}
