package receiptdex

import "github.com/kailas-cloud/receiptdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrRetrieval        = domain.ErrRetrieval
	ErrModelUnavailable = domain.ErrModelUnavailable
	ErrQuotaExceeded    = domain.ErrQuotaExceeded
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrInvalidRecord    = domain.ErrInvalidRecord
)
