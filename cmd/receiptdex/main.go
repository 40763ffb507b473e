package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/config"
	"github.com/kailas-cloud/receiptdex/internal/db"
	dbDynamo "github.com/kailas-cloud/receiptdex/internal/db/dynamo"
	dbMemory "github.com/kailas-cloud/receiptdex/internal/db/memory"
	dbValkey "github.com/kailas-cloud/receiptdex/internal/db/valkey"
	"github.com/kailas-cloud/receiptdex/internal/domain"
	logpkg "github.com/kailas-cloud/receiptdex/internal/logger"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/receiptdex/internal/repository/budget"
	"github.com/kailas-cloud/receiptdex/internal/repository/respcache"
	chiTransport "github.com/kailas-cloud/receiptdex/internal/transport/chi"
	geminiLLM "github.com/kailas-cloud/receiptdex/internal/transport/gemini"
	openaiLLM "github.com/kailas-cloud/receiptdex/internal/transport/openai"
	completionuc "github.com/kailas-cloud/receiptdex/internal/usecase/completion"
	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
	"github.com/kailas-cloud/receiptdex/internal/usecase/interpret"
	"github.com/kailas-cloud/receiptdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/receiptdex/internal/usecase/usage"
	"github.com/kailas-cloud/receiptdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting receiptdex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("kv_driver", cfg.KV.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	ctx := context.Background()

	store, err := buildStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to create receipt store", zap.Error(err))
	}
	if cfg.Store.CreateTable {
		if err := store.EnsureTable(ctx); err != nil {
			logger.Fatal("Failed to create receipt table", zap.Error(err))
		}
	}
	logger.Info("Receipt store ready", zap.String("table", cfg.Store.Table))

	// KV is optional: it backs the response cache and budget persistence.
	var kv *dbValkey.Store
	if cfg.KV.Enabled() {
		kv, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:     cfg.KV.Addrs,
			Password:  cfg.KV.Password,
			KeyPrefix: cfg.KV.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create kv store", zap.Error(err))
		}
		defer kv.Close()

		if err := kv.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("KV store not ready", zap.Error(err))
		}
		logger.Info("Connected to kv store", zap.Strings("addrs", cfg.KV.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterRetrievalMetrics()

	// Single BudgetTracker shared by the completer chain and the usage service.
	action := completionuc.BudgetActionWarn
	if cfg.LLM.Budget.Action == "reject" {
		action = completionuc.BudgetActionReject
	}
	budget := completionuc.NewBudgetTracker(
		cfg.LLM.Provider, cfg.LLM.Budget.DailyTokenLimit, cfg.LLM.Budget.MonthlyTokenLimit, action, logger,
	)
	if kv != nil {
		budget.WithStore(ctx, budgetrepo.New(kv, budgetrepo.DefaultTTLs()))
	}

	llm, base, err := buildCompleter(ctx, cfg.LLM, kv, budget, logger)
	if err != nil {
		logger.Fatal("Failed to create language model client", zap.Error(err))
	}
	if closer, ok := base.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}
	logger.Info("Language model ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("cache", cfg.LLM.CacheTTLSec > 0),
	)

	interpreter, err := interpret.New(llm, logger)
	if err != nil {
		logger.Fatal("Failed to create query interpreter", zap.Error(err))
	}

	loc, err := cfg.Search.Location()
	if err != nil {
		logger.Fatal("Invalid time zone", zap.Error(err))
	}

	retrievalSvc := retrieval.New(interpreter, store, loc, logger)
	usageSvc := usageuc.New(budget, cfg.LLM.Provider, cfg.LLM.Budget.CostPerMillionTokens)

	// Pass nil interface (not typed nil pointer!) when kv is disabled.
	var kvPinger healthuc.Pinger
	if kv != nil {
		kvPinger = kv
	}
	var modelChecker healthuc.ModelChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		modelChecker = hc
	}
	healthSvc := healthuc.New(store, kvPinger, modelChecker)

	server := chiTransport.NewServer(
		retrievalSvc, usageSvc, healthSvc,
		time.Duration(cfg.Search.RequestTimeoutSec)*time.Second, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, cfg.Search.DefaultTenant))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
			Code:    chiTransport.CodeBadRequest,
			Message: "route not found",
		})
	})
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildStore opens the receipt table for the configured driver.
func buildStore(ctx context.Context, sc config.StoreConfig) (db.ReceiptStore, error) {
	switch sc.Driver {
	case "memory":
		return dbMemory.New(int(sc.PageSize)), nil
	case "dynamodb":
		s, err := dbDynamo.NewStore(ctx, dbDynamo.Config{
			Table:           sc.Table,
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			PageSize:        sc.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb: %w", err)
		}
		if !sc.CreateTable {
			if err := s.WaitForReady(ctx, time.Duration(sc.ReadinessTimeout)*time.Second); err != nil {
				return nil, fmt.Errorf("dynamodb not ready: %w", err)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// buildCompleter assembles the decorator chain: provider -> Cached -> Instrumented.
// It also returns the bare provider for health checks and cleanup.
func buildCompleter(
	ctx context.Context,
	lc config.LLMConfig,
	kv *dbValkey.Store,
	budget *completionuc.BudgetTracker,
	logger *zap.Logger,
) (domain.Completer, domain.Completer, error) {
	var base domain.Completer
	switch lc.Provider {
	case "gemini":
		g, err := geminiLLM.NewCompleter(ctx, &geminiLLM.Config{
			APIKey:      lc.APIKey,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			MaxTokens:   lc.MaxTokens,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		base = g
	default:
		base = openaiLLM.NewCompleter(&openaiLLM.Config{
			APIKey:      lc.APIKey,
			BaseURL:     lc.BaseURL,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			MaxTokens:   lc.MaxTokens,
			JSONMode:    true,
			Provider:    lc.Provider,
			Logger:      logger,
		})
	}

	llm := base
	if kv != nil && lc.CacheTTLSec > 0 {
		llm = respcache.New(base, kv, lc.Model,
			time.Duration(lc.CacheTTLSec)*time.Second, metrics.LLMCacheTotal, logger)
	}

	llm = completionuc.NewInstrumentedCompleter(llm, lc.Provider, lc.Model, budget, logger)
	return llm, base, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
