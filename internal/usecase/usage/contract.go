package usage

import "time"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	DailyLimit() int64
	MonthlyLimit() int64
	DailyUsed() int64
	MonthlyUsed() int64
	DailyRequests() int64
	MonthlyRequests() int64
	RemainingDaily() int64
	RemainingMonthly() int64
	Now() time.Time
}
