package domain

import "context"

// Role is the author of a chat message.
type Role string

// Chat roles understood by every completer.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat turn sent to a language model.
type Message struct {
	Role    Role
	Content string
}

// Completion is the text reply of a language model with its token usage.
type Completion struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// Completer sends a conversation to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// HealthChecker is an optional interface for dependencies that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
