// Package usage describes language model consumption reports.
package usage

import "fmt"

// Period is the aggregation granularity.
type Period string

// Aggregation periods. Budgets reset at UTC midnight and on the first of the month.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
	}
}

// Budget is a snapshot of the token budget for one period.
type Budget struct {
	tokensLimit     int64
	tokensRemaining int64
	resetsAt        int64 // unix millis
}

// NewBudget creates a budget snapshot. A zero limit means unlimited.
func NewBudget(limit, remaining, resetsAt int64) Budget {
	if limit == 0 {
		remaining = -1
	}
	return Budget{tokensLimit: limit, tokensRemaining: remaining, resetsAt: resetsAt}
}

// TokensLimit returns the token cap, 0 when unlimited.
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensRemaining returns tokens left, -1 when unlimited.
func (b Budget) TokensRemaining() int64 { return b.tokensRemaining }

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.tokensLimit == 0 }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.tokensLimit > 0 && b.tokensRemaining <= 0 }

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Consumption is what the process spent in a period.
type Consumption struct {
	Completions      int64
	Tokens           int64
	CostMillidollars int64 // 1 USD = 1000
}

// Report is the usage of one language model provider for a period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	consumption Consumption
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, provider string, c Consumption, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		consumption: c,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end (unix millis, exclusive).
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the language model provider.
func (r Report) Provider() string { return r.provider }

// Consumption returns what was spent.
func (r Report) Consumption() Consumption { return r.consumption }

// Budget returns the budget snapshot.
func (r Report) Budget() Budget { return r.budget }
