// Package openai implements domain.Completer on the OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// Completer is a chat completion provider (OpenAI, Azure-style gateways, Ollama, vLLM).
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	jsonMode    bool
	user        string
	provider    string
	logger      *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey      string
	BaseURL     string // empty = api.openai.com
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool // request response_format=json_object
	User        string
	Provider    string
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completer.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    cfg.JSONMode,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.Completer with transport-level metrics.
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toChatMessages(messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		User:        c.user,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(c.provider, c.model, "api_error").Inc()
		return domain.Completion{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(c.provider, c.model, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrModelUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())

	promptTokens := resp.Usage.PromptTokens
	totalTokens := resp.Usage.TotalTokens
	if totalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(promptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.model, "total").Add(float64(totalTokens))
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn("Completion truncated by max_tokens",
			zap.String("model", c.model), zap.Int("max_tokens", c.maxTokens))
	}

	return domain.Completion{
		Text:         choice.Message.Content,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// parseAPIError extracts a readable error from the API response.
// Everything is wrapped with domain.ErrModelUnavailable for the 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrModelUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("completion request: %w: %w", err, wrap)
	}
	return fmt.Errorf("completion request failed: %w", wrap)
}

// extractDetail pulls "detail" out of a JSON error body (vLLM / gateway format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
