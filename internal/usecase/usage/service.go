package usage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domusage "github.com/kailas-cloud/receiptdex/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br             BudgetReader
	provider       string
	costPerMillion decimal.Decimal
}

// New creates a Service. costPerMillion is the USD price of one million tokens.
func New(br BudgetReader, provider string, costPerMillion float64) *Service {
	return &Service{br: br, provider: provider, costPerMillion: decimal.NewFromFloat(costPerMillion)}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.br.Now()
	var start, end time.Time
	var limit, used, remaining, requests int64

	switch period {
	case domusage.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		limit, used = s.br.MonthlyLimit(), s.br.MonthlyUsed()
		remaining, requests = s.br.RemainingMonthly(), s.br.MonthlyRequests()
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
		limit, used = s.br.DailyLimit(), s.br.DailyUsed()
		remaining, requests = s.br.RemainingDaily(), s.br.DailyRequests()
		period = domusage.PeriodDay
	}

	// cost = tokens / 1e6 * price, in thousandths of a dollar
	cost := decimal.NewFromInt(used).Mul(s.costPerMillion).Div(decimal.NewFromInt(1000)).Round(0).IntPart()

	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), s.provider,
		domusage.Consumption{Completions: requests, Tokens: used, CostMillidollars: cost},
		domusage.NewBudget(limit, remaining, end.UnixMilli()),
	)
}
