package memento

import "github.com/kailas-cloud/memento/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrValidation             = domain.ErrValidation
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbeddingTimeout       = domain.ErrEmbeddingTimeout
	ErrSearchBackend          = domain.ErrSearchBackend
)
