package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval is the umbrella for every failure returned by the retrieval paths.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrMalformedModelOutput signals a model reply that is not a single JSON object.
	// The interpreter recovers from it; it never reaches callers of Search.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrModelUnavailable signals a language model transport or API failure.
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrQuotaExceeded signals an exhausted language model token budget.
	ErrQuotaExceeded = errors.New("language model quota exceeded")
	// ErrStoreUnavailable signals a receipt store failure.
	ErrStoreUnavailable = errors.New("receipt store unavailable")
	// ErrInvalidRecord signals a receipt that cannot be written.
	ErrInvalidRecord = errors.New("invalid receipt record")
	// ErrUnauthenticated signals a request without a resolvable tenant.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// RetrievalError wraps the stage that failed together with its cause.
// errors.Is matches both ErrRetrieval and the cause chain.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrRetrieval.Error(), e.Stage, e.Err.Error())
}

func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }

// NewRetrievalError creates a retrieval error for the given stage.
func NewRetrievalError(stage string, err error) error {
	return &RetrievalError{Stage: stage, Err: err}
}
