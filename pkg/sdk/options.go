package receiptdex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver          string // "dynamodb" or "memory"
	region          string
	table           string
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	pageSize        int32
	createTable     bool

	completer     Completer
	openAIKey     string
	openAIURL     string
	model         string
	dailyTokens   int64
	monthlyTokens int64

	location *time.Location

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDynamoDB stores receipts in a DynamoDB table.
func WithDynamoDB(region, table string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "dynamodb"
		c.region = region
		c.table = table
	})
}

// WithDynamoEndpoint points the DynamoDB client at DynamoDB Local or LocalStack
// with static credentials.
func WithDynamoEndpoint(endpoint, accessKeyID, secretAccessKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.endpoint = endpoint
		c.accessKeyID = accessKeyID
		c.secretAccessKey = secretAccessKey
	})
}

// WithMemoryStore keeps receipts in process. Useful for tests and demos.
func WithMemoryStore(pageSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.pageSize = int32(pageSize) //nolint:gosec // page sizes are small
	})
}

// WithPageSize sets how many records one store page holds.
func WithPageSize(n int32) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = n
	})
}

// WithCreateTable creates the table and its indexes on startup when missing.
func WithCreateTable() Option {
	return optionFunc(func(c *clientConfig) {
		c.createTable = true
	})
}

// WithOpenAI uses an OpenAI-compatible chat model as the interpreter.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.model = model
	})
}

// WithOpenAIBaseURL overrides the OpenAI endpoint (vLLM, Ollama, proxies).
func WithOpenAIBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIURL = url
	})
}

// WithCompleter sets a custom language model. Takes precedence over WithOpenAI.
func WithCompleter(comp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = comp
	})
}

// WithTokenBudget rejects searches once the daily or monthly token limit is spent.
// Zero means unlimited. Counters live in process.
func WithTokenBudget(daily, monthly int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
	})
}

// WithLocation sets the time zone "today" is taken in for relative dates.
// Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return optionFunc(func(c *clientConfig) {
		c.location = loc
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
