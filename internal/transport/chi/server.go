package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	domusage "github.com/kailas-cloud/receiptdex/internal/domain/usage"
	"github.com/kailas-cloud/receiptdex/internal/logger"
	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
	"github.com/kailas-cloud/receiptdex/internal/usecase/retrieval"
)

const (
	maxQueryLength = 1000
	maxBodyBytes   = 1 << 20
)

// Retriever answers receipt questions and stores receipts.
type Retriever interface {
	Search(ctx context.Context, userID, query string) (retrieval.Outcome, error)
	ListAll(ctx context.Context, userID string) ([]receipt.Record, error)
	Put(ctx context.Context, userID, receiptID string, f receipt.Fields) (receipt.Record, error)
}

// UsageReporter reports language model consumption.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the receiptdex HTTP API.
type Server struct {
	receipts      Retriever
	usage         UsageReporter
	health        HealthChecker
	timeout       time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. timeout bounds every retrieval request (0 = none).
func NewServer(
	receipts Retriever,
	usage UsageReporter,
	health HealthChecker,
	timeout time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		receipts: receipts,
		usage:    usage,
		health:   health,
		timeout:  timeout,
		logger:   logger,
	}
	// Порядок важен: дедлайн проверяется раньше, чем причина, которую он оборвал.
	s.errorHandlers = []errorHandler{
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, CodeQuotaExceeded),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, CodeModelUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/receipts", s.ListReceipts)
	r.Put("/receipts/{receiptID}", s.PutReceipt)
	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is too long")
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	out, err := s.receipts.Search(ctx, UserFromContext(ctx), req.Query)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	if out.Degraded {
		w.Header().Set("X-Filter-Degraded", "true")
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:    receiptsToDTO(out.Records),
		Filter:   out.Spec.Map(),
		Degraded: out.Degraded,
	})
}

// ListReceipts handles GET /receipts.
func (s *Server) ListReceipts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	records, err := s.receipts.ListAll(ctx, UserFromContext(ctx))
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: receiptsToDTO(records)})
}

// PutReceipt handles PUT /receipts/{receiptID}. Writes need a tenant.
func (s *Server) PutReceipt(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	if userID == "" {
		s.handleDomainError(r.Context(), w, domain.ErrUnauthenticated)
		return
	}

	var req PutReceiptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	rec, err := s.receipts.Put(ctx, userID, chi.URLParam(r, "receiptID"), req.fields())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		s.handleDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptToDTO(rec))
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		context.DeadlineExceeded,
		domain.ErrUnauthenticated,
		domain.ErrInvalidRecord,
		domain.ErrQuotaExceeded,
		domain.ErrModelUnavailable,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContextOr(ctx, s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
