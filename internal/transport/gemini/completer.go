// Package gemini implements domain.Completer on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// generator is the part of *genai.GenerativeModel the completer needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// Completer sends conversations to a Gemini model.
type Completer struct {
	client *genai.Client
	model  generator
	name   string
	logger *zap.Logger
}

// NewCompleter creates a Gemini completer.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens)) //nolint:gosec // bounded by config validation
	}
	model.ResponseMIMEType = "application/json"

	return &Completer{client: client, model: model, name: cfg.Model, logger: cfg.Logger}, nil
}

// Complete implements domain.Completer. The shared model carries no per-request
// state, so every message goes in as a text part.
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (domain.Completion, error) {
	parts := make([]genai.Part, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, genai.Text(m.Content))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, parts...)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("gemini", c.name, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("gemini", c.name, "api_error").Inc()
		return domain.Completion{}, fmt.Errorf("generating content: %w: %w", err, domain.ErrModelUnavailable)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		metrics.LLMRequestsTotal.WithLabelValues("gemini", c.name, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("gemini", c.name, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("no response from gemini: %w", domain.ErrModelUnavailable)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	metrics.LLMRequestsTotal.WithLabelValues("gemini", c.name, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("gemini", c.name).Observe(duration.Seconds())

	var out domain.Completion
	out.Text = text.String()
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
		metrics.LLMTokensTotal.WithLabelValues("gemini", c.name, "prompt").Add(float64(u.PromptTokenCount))
		metrics.LLMTokensTotal.WithLabelValues("gemini", c.name, "total").Add(float64(u.TotalTokenCount))
	}
	return out, nil
}

// HealthCheck lists models; the first page is enough.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if _, err := c.client.ListModels(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Close closes the Gemini client.
func (c *Completer) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close gemini client: %w", err)
	}
	return nil
}
