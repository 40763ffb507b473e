// Package retrieval answers receipt questions: interpret, compile, page the store.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/receipt"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/filter"
	"github.com/kailas-cloud/receiptdex/internal/domain/search/plan"
	"github.com/kailas-cloud/receiptdex/internal/logger"
	"github.com/kailas-cloud/receiptdex/internal/metrics"
)

// Retrieval stages reported in errors and metrics.
const (
	StageInterpret = "interpret"
	StageFetch     = "fetch"
)

// Outcome is the answer to a search.
type Outcome struct {
	Records []receipt.Record
	// Spec is the filter that was applied, tenant included.
	Spec filter.Spec
	// Degraded is set when the model reply was unusable and every record of the tenant was returned.
	Degraded bool
}

// Service is the retrieval orchestrator.
type Service struct {
	interp Interpreter
	store  Store
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// New creates a retrieval service. loc is the zone "today" is taken in.
func New(interp Interpreter, store Store, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{interp: interp, store: store, loc: loc, now: time.Now, logger: logger}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Search answers a free-text question for userID. An empty userID searches
// every tenant (single-tenant deployments). An empty query lists everything.
// Interpreter failures are returned, never turned into an unfiltered listing.
func (s *Service) Search(ctx context.Context, userID, query string) (Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		records, err := s.ListAll(ctx, userID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Records: records, Spec: filter.Empty().WithTenant(userID)}, nil
	}

	today := s.now().In(s.loc)
	res, err := s.interp.Interpret(ctx, query, today)
	if err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(StageInterpret).Inc()
		return Outcome{}, domain.NewRetrievalError(StageInterpret, err)
	}

	spec := res.Spec.WithTenant(userID)
	records, err := s.fetch(ctx, spec)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Records: records, Spec: spec, Degraded: res.Degraded}, nil
}

// ListAll returns every record of userID (or of every tenant when empty).
func (s *Service) ListAll(ctx context.Context, userID string) ([]receipt.Record, error) {
	return s.fetch(ctx, filter.Empty().WithTenant(userID))
}

func (s *Service) fetch(ctx context.Context, spec filter.Spec) ([]receipt.Record, error) {
	p := plan.Compile(spec)
	logger.FromContext(ctx).Debug("Compiled plan", zap.Stringer("plan", p))

	records, err := FetchAll(ctx, s.store, p)
	if err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(StageFetch).Inc()
		return nil, domain.NewRetrievalError(StageFetch, err)
	}
	return records, nil
}

// Put validates and stores a whole receipt (ingestion).
func (s *Service) Put(ctx context.Context, userID, receiptID string, f receipt.Fields) (receipt.Record, error) {
	r, err := receipt.New(userID, receiptID, f)
	if err != nil {
		return receipt.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if err := s.store.Put(ctx, r); err != nil {
		return receipt.Record{}, fmt.Errorf("put receipt %s: %w: %w", receiptID, domain.ErrStoreUnavailable, err)
	}
	s.logger.Debug("Receipt stored", zap.String("user_id", userID), zap.String("receipt_id", receiptID))
	return r, nil
}
