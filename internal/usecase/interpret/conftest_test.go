package interpret

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// today is a Wednesday.
var today = time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC)

type mockCompleter struct {
	reply    string
	err      error
	messages []domain.Message
	calls    int
}

func (m *mockCompleter) Complete(_ context.Context, messages []domain.Message) (domain.Completion, error) {
	m.calls++
	m.messages = messages
	if m.err != nil {
		return domain.Completion{}, m.err
	}
	return domain.Completion{Text: m.reply, TotalTokens: 42}, nil
}

func newTestInterpreter(t *testing.T, reply string) (*Interpreter, *mockCompleter) {
	t.Helper()
	llm := &mockCompleter{reply: reply}
	i, err := New(llm, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return i, llm
}
