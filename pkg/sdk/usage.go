package receiptdex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/receiptdex/internal/domain/usage"
)

// UsagePeriod is the window of a usage report.
type UsagePeriod string

// Supported windows. Anything else reports the day.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport is the language model consumption of this process in one window.
// Searches answered from the response cache count as completions with zero tokens.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Completions int64
	Tokens      int64
	Budget      BudgetStatus
}

// BudgetStatus is the token quota for the window. ResetsAt is zero when unlimited.
type BudgetStatus struct {
	TokensLimit     int64
	TokensRemaining int64 // -1 when unlimited
	IsExhausted     bool
	ResetsAt        time.Time
}

// Unlimited reports whether no token limit applies to the window.
func (b BudgetStatus) Unlimited() bool { return b.TokensLimit <= 0 }

// Usage reports model consumption since the client was created
// (or since the period rolled over). It only reads counters.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	p, err := domusage.ParsePeriod(string(period))
	if err != nil {
		p = domusage.PeriodDay
	}
	report := c.usageSvc.GetReport(ctx, p)
	b := report.Budget()

	out := UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: millis(report.PeriodStart()),
		PeriodEnd:   millis(report.PeriodEnd()),
		Completions: report.Consumption().Completions,
		Tokens:      report.Consumption().Tokens,
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if !out.Budget.Unlimited() {
		out.Budget.ResetsAt = millis(b.ResetsAt())
	}
	return out
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
