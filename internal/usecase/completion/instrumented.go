// Package completion decorates language model completers with token budgets and logging.
package completion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedCompleter wraps a Completer with budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded by the transports;
// this layer owns the budget and its gauge.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedCompleter wraps a completer. budget may be nil (unlimited).
func NewInstrumentedCompleter(
	inner domain.Completer, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedCompleter {
	return &InstrumentedCompleter{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Complete checks the budget, delegates to the inner completer and records usage.
func (p *InstrumentedCompleter) Complete(
	ctx context.Context, messages []domain.Message,
) (domain.Completion, error) {
	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Error(err),
			)
			return domain.Completion{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	result, err := p.inner.Complete(ctx, messages)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Completion request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	// Cache hits report zero tokens and are still counted as requests.
	if p.budget != nil {
		p.budget.Record(int64(result.TotalTokens))
		remaining := metrics.LLMBudgetTokensRemaining
		remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
		remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
	}

	p.logger.Debug("Completion request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("reply_bytes", len(result.Text)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
