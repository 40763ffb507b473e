package receiptdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/db"
	dbDynamo "github.com/kailas-cloud/receiptdex/internal/db/dynamo"
	dbMemory "github.com/kailas-cloud/receiptdex/internal/db/memory"
	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	openaiLLM "github.com/kailas-cloud/receiptdex/internal/transport/openai"
	completionuc "github.com/kailas-cloud/receiptdex/internal/usecase/completion"
	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
	"github.com/kailas-cloud/receiptdex/internal/usecase/interpret"
	"github.com/kailas-cloud/receiptdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/receiptdex/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultModel            = "gpt-4o-mini"
	sdkProvider             = "sdk"
)

// Внутренние интерфейсы для подмены в тестах.
type retrievalUseCase interface {
	Search(ctx context.Context, userID, query string) (retrieval.Outcome, error)
	ListAll(ctx context.Context, userID string) ([]receipt.Record, error)
	Put(ctx context.Context, userID, receiptID string, f receipt.Fields) (receipt.Record, error)
}

// Client is the receiptdex SDK entry point.
type Client struct {
	store     db.Pinger
	retrieval retrievalUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	closeFn   func() error
	obs       *observer
}

// New creates a receiptdex Client and connects to the receipt store.
// The provided context is used for the readiness check and table creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("receiptdex: receipt store required (use WithDynamoDB or WithMemoryStore)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(store, cfg, obs)
}

func createStore(ctx context.Context, cfg *clientConfig) (db.ReceiptStore, error) {
	switch cfg.driver {
	case "memory":
		return dbMemory.New(int(cfg.pageSize)), nil
	case "dynamodb":
		s, err := dbDynamo.NewStore(ctx, dbDynamo.Config{
			Table:           cfg.table,
			Region:          cfg.region,
			Endpoint:        cfg.endpoint,
			AccessKeyID:     cfg.accessKeyID,
			SecretAccessKey: cfg.secretAccessKey,
			PageSize:        cfg.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("receiptdex: create dynamodb store: %w", err)
		}
		if cfg.createTable {
			if err := s.EnsureTable(ctx); err != nil {
				return nil, fmt.Errorf("receiptdex: create table: %w", err)
			}
			return s, nil
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return nil, fmt.Errorf("receiptdex: store not ready: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("receiptdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.ReceiptStore, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	// Completer: custom > OpenAI > noop (listing works, search fails)
	var base domain.Completer = noopCompleter{}
	var closeFn func() error
	switch {
	case cfg.completer != nil:
		base = &completerAdapter{inner: cfg.completer}
		if cl, ok := cfg.completer.(interface{ Close() error }); ok {
			closeFn = cl.Close
		}
	case cfg.openAIKey != "" || cfg.openAIURL != "":
		model := cfg.model
		if model == "" {
			model = defaultModel
		}
		base = openaiLLM.NewCompleter(&openaiLLM.Config{
			APIKey:   cfg.openAIKey,
			BaseURL:  cfg.openAIURL,
			Model:    model,
			JSONMode: true,
			Provider: "openai",
			Logger:   logger,
		})
	}

	budget := completionuc.NewBudgetTracker(
		sdkProvider, cfg.dailyTokens, cfg.monthlyTokens, completionuc.BudgetActionReject, logger,
	)
	llm := completionuc.NewInstrumentedCompleter(base, sdkProvider, cfg.model, budget, logger)

	interp, err := interpret.New(llm, logger)
	if err != nil {
		return nil, fmt.Errorf("receiptdex: interpreter: %w", err)
	}

	var model healthuc.ModelChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		model = hc
	}

	return &Client{
		store:     store,
		retrieval: retrieval.New(interp, store, cfg.location, logger),
		healthSvc: healthuc.New(store, nil, model),
		usageSvc:  usageuc.New(budget, sdkProvider, 0),
		closeFn:   closeFn,
		obs:       obs,
	}, nil
}

// Close releases the custom completer if it is closable.
func (c *Client) Close() {
	if c.closeFn != nil {
		_ = c.closeFn()
	}
}

// Ping checks receipt store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Receipts returns the receipt service for one user.
// An empty userID reads every user's receipts (single-tenant scan).
func (c *Client) Receipts(userID string) *ReceiptService {
	return &ReceiptService{
		userID: userID,
		svc:    c.retrieval,
		obs:    c.obs,
	}
}
