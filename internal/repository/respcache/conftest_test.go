package respcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
)

type mockCompleter struct {
	result domain.Completion
	err    error
	calls  int
}

func (m *mockCompleter) Complete(_ context.Context, _ []domain.Message) (domain.Completion, error) {
	m.calls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedCompleter(t *testing.T, inner *mockCompleter) (*CachedCompleter, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cc := New(inner, ms, "gpt-4o-mini", time.Hour, nil, zap.NewNop())
	return cc, ms
}

func conversation(query string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: "Today is 2024-03-20 (Wednesday)."},
		{Role: domain.RoleUser, Content: query},
	}
}
