package receiptdex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

const metricsNamespace = "receiptdex"

// sdkMetrics are the collectors an embedding application can scrape.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	returned   *prometheus.HistogramVec
	degraded   prometheus.Counter
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by type and outcome (ok or the failure cause).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		returned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "receipts_returned",
			Help:      "Receipts returned by search and list.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"operation"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "degraded_searches_total",
			Help:      "Searches answered with every receipt because the model reply was unusable.",
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.returned); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.degraded); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector already registered under
// the same name so two clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("receiptdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("receiptdex: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// failureCauses label failed operations; the first match wins.
var failureCauses = []struct {
	err   error
	label string
}{
	{domain.ErrQuotaExceeded, "quota_exceeded"},
	{domain.ErrModelUnavailable, "model_unavailable"},
	{domain.ErrStoreUnavailable, "store_unavailable"},
	{domain.ErrInvalidRecord, "invalid_record"},
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, c := range failureCauses {
		if errors.Is(err, c.err) {
			return c.label
		}
	}
	return "error"
}

// observer logs and counts SDK operations. A nil observer does nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := statusLabel(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("operation failed", "op", op, "status", status, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("operation completed", "op", op, "duration", dur)
}

// observeResult records the size of a read and whether the filter was dropped.
func (o *observer) observeResult(op string, n int, degraded bool) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.returned.WithLabelValues(op).Observe(float64(n))
		if degraded {
			o.metrics.degraded.Inc()
		}
	}
	if degraded && o.logger != nil {
		o.logger.Warn("model reply unusable, returned every receipt", "op", op, "receipts", n)
	}
}
