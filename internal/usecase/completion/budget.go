package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the completion through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the completion with domain.ErrQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists period counters so restarts and replicas share them.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// period is one counting window (a UTC day or a UTC month).
type period struct {
	start    time.Time
	tokens   int64
	requests int64
	limit    int64
}

func (p *period) roll(start time.Time) {
	if start.After(p.start) {
		p.start = start
		p.tokens = 0
		p.requests = 0
	}
}

func (p *period) exceeded() bool { return p.limit > 0 && p.tokens >= p.limit }

func (p *period) remaining() int64 {
	if p.limit == 0 {
		return -1
	}
	return max(p.limit-p.tokens, 0)
}

// BudgetTracker counts completion tokens per day and month.
// Check is in-memory only; Record updates memory first and then writes behind to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	day      period
	month    period
	action   BudgetAction
	provider string
	now      func() time.Time
	store    BudgetStore
	logger   *zap.Logger
}

// NewBudgetTracker creates a budget tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		day:      period{limit: dailyLimit},
		month:    period{limit: monthlyLimit},
		action:   action,
		provider: provider,
		now:      time.Now,
		logger:   logger,
	}
	b.resetIfNeeded()
	return b
}

// WithClock replaces the wall clock, for tests.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.day.start, b.month.start = time.Time{}, time.Time{}
	b.resetIfNeeded()
	return b
}

// WithStore attaches a persistence store and loads the current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	if val, err := b.store.Get(ctx, b.dailyKey(now)); err == nil {
		b.day.tokens = val
	} else {
		b.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if val, err := b.store.Get(ctx, b.monthlyKey(now)); err == nil {
		b.month.tokens = val
	} else {
		b.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.tokens),
		zap.Int64("monthly_used", b.month.tokens),
	)
}

func (b *BudgetTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, b.provider, t.Format("2006-01-02"))
}

func (b *BudgetTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, b.provider, t.Format("2006-01"))
}

// Check verifies the budget allows another completion.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	if !b.day.exceeded() && !b.month.exceeded() {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.tokens),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.tokens),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record registers one completion and the tokens it consumed.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.day.tokens += tokens
	b.day.requests++
	b.month.tokens += tokens
	b.month.requests++
	store := b.store
	now := b.now().UTC()
	b.mu.Unlock()

	if store == nil || tokens == 0 {
		return
	}

	// Write-behind on a detached context.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dailyKey, monthlyKey := b.dailyKey(now), b.monthlyKey(now)
	if err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist daily budget", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist monthly budget", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.day.remaining()
}

// RemainingMonthly returns tokens left this month (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.month.remaining()
}

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.day.limit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.month.limit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.day.tokens
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.month.tokens
}

// DailyRequests returns completions recorded today by this process.
func (b *BudgetTracker) DailyRequests() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.day.requests
}

// MonthlyRequests returns completions recorded this month by this process.
func (b *BudgetTracker) MonthlyRequests() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return b.month.requests
}

// Now returns the tracker clock in UTC.
func (b *BudgetTracker) Now() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().UTC()
}

// resetIfNeeded zeroes counters when the day or month rolls over. Caller holds mu.
func (b *BudgetTracker) resetIfNeeded() {
	now := b.now().UTC()
	b.day.roll(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	b.month.roll(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
}
