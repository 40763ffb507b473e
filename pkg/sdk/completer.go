package receiptdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

// Completer answers a chat conversation with text.
// The interpreter expects a single JSON object in reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// Message is a chat turn. Role is "system" or "user".
type Message struct {
	Role    string
	Content string
}

// Completion carries the model reply and its token usage.
type Completion struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// completerAdapter wraps public Completer to satisfy internal domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, messages []domain.Message) (domain.Completion, error) {
	in := make([]Message, len(messages))
	for i, m := range messages {
		in[i] = Message{Role: string(m.Role), Content: m.Content}
	}
	c, err := a.inner.Complete(ctx, in)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Completion{
		Text:         c.Text,
		PromptTokens: c.PromptTokens,
		TotalTokens:  c.TotalTokens,
	}, nil
}

// noopCompleter fails every call (used when no model is configured).
// Listing still works; searches with a query return ErrModelUnavailable.
type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _ []domain.Message) (domain.Completion, error) {
	return domain.Completion{}, fmt.Errorf(
		"receiptdex: model not configured (use WithOpenAI or WithCompleter): %w", domain.ErrModelUnavailable,
	)
}
