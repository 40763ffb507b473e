package receiptdex

import (
	"context"

	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/usecase/retrieval"
)

// --- retrievalUseCase mock ---

type mockRetrievalUC struct {
	searchFn func(ctx context.Context, userID, query string) (retrieval.Outcome, error)
	listFn   func(ctx context.Context, userID string) ([]receipt.Record, error)
	putFn    func(ctx context.Context, userID, receiptID string, f receipt.Fields) (receipt.Record, error)
}

func (m *mockRetrievalUC) Search(ctx context.Context, userID, query string) (retrieval.Outcome, error) {
	return m.searchFn(ctx, userID, query)
}

func (m *mockRetrievalUC) ListAll(ctx context.Context, userID string) ([]receipt.Record, error) {
	return m.listFn(ctx, userID)
}

func (m *mockRetrievalUC) Put(
	ctx context.Context, userID, receiptID string, f receipt.Fields,
) (receipt.Record, error) {
	return m.putFn(ctx, userID, receiptID, f)
}

// --- Completer mock ---

type mockCompleter struct {
	fn     func(ctx context.Context, messages []Message) (Completion, error)
	closed bool
}

func (m *mockCompleter) Complete(ctx context.Context, messages []Message) (Completion, error) {
	return m.fn(ctx, messages)
}

func (m *mockCompleter) Close() error {
	m.closed = true
	return nil
}

func replyWith(text string) *mockCompleter {
	return &mockCompleter{fn: func(context.Context, []Message) (Completion, error) {
		return Completion{Text: text, PromptTokens: 90, TotalTokens: 100}, nil
	}}
}
