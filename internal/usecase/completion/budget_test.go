package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected domain.ErrQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected domain.ErrQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1/-1, got %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestBudgetTracker_RemainingAndRequests(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)
	bt.Record(0)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}
	if bt.DailyRequests() != 2 || bt.MonthlyRequests() != 2 {
		t.Errorf("requests = %d/%d, want 2/2", bt.DailyRequests(), bt.MonthlyRequests())
	}
}

func TestBudgetTracker_RemainingNeverNegative(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 100, BudgetActionWarn, zap.NewNop())
	bt.Record(250)

	if bt.RemainingDaily() != 0 || bt.RemainingMonthly() != 0 {
		t.Errorf("remaining = %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestBudgetTracker_DayRolloverKeepsMonth(t *testing.T) {
	now := time.Date(2024, 3, 20, 23, 59, 0, 0, time.UTC)
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop()).
		WithClock(func() time.Time { return now })

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected daily limit to reject")
	}

	now = now.Add(2 * time.Minute)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected new day to allow, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 100 {
		t.Errorf("used = %d/%d, want 0/100", bt.DailyUsed(), bt.MonthlyUsed())
	}

	now = time.Date(2024, 4, 1, 0, 0, 1, 0, time.UTC)
	if bt.MonthlyUsed() != 0 {
		t.Errorf("expected month reset, got %d", bt.MonthlyUsed())
	}
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func TestBudgetTracker_WithStore_LoadsCounters(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	store := newMockBudgetStore()
	store.data["receiptdex:budget:openai:daily:2024-03-20"] = 400
	store.data["receiptdex:budget:openai:monthly:2024-03"] = 4000

	bt := NewBudgetTracker("openai", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithClock(func() time.Time { return now }).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 400 || bt.MonthlyUsed() != 4000 {
		t.Errorf("used = %d/%d, want 400/4000", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_WritesBehind(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	store := newMockBudgetStore()
	bt := NewBudgetTracker("gemini", 0, 0, BudgetActionWarn, zap.NewNop()).
		WithClock(func() time.Time { return now }).
		WithStore(context.Background(), store)

	bt.Record(42)

	if store.data["receiptdex:budget:gemini:daily:2024-03-20"] != 42 {
		t.Errorf("daily key = %v", store.data)
	}
	if store.data["receiptdex:budget:gemini:monthly:2024-03"] != 42 {
		t.Errorf("monthly key = %v", store.data)
	}
}

func TestBudgetTracker_StoreErrorsAreNotFatal(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")

	bt := NewBudgetTracker("openai", 100, 0, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)
	bt.Record(10)

	if bt.DailyUsed() != 10 {
		t.Errorf("in-memory counter = %d, want 10", bt.DailyUsed())
	}
}

func TestBudgetTracker_ConcurrentRecord(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Record(2)
		}()
	}
	wg.Wait()

	if bt.DailyUsed() != 100 {
		t.Errorf("DailyUsed = %d, want 100", bt.DailyUsed())
	}
}
