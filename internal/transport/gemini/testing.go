package gemini

import "go.uber.org/zap"

// NewCompleterForTest creates a Completer around a fake model (for tests only).
func NewCompleterForTest(model generator, name string) *Completer {
	return &Completer{model: model, name: name, logger: zap.NewNop()}
}
