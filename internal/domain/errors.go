package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing memory record.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals a malformed request rejected before any backend call.
	ErrValidation = errors.New("validation failed")
	// ErrVectorDimMismatch signals an embedding whose dimension differs from the index mapping.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingTimeout signals that the embedding provider did not answer in time.
	ErrEmbeddingTimeout = errors.New("embedding provider timeout")
	// ErrSearchBackend signals that the search index is unreachable or returned an error.
	ErrSearchBackend = errors.New("search backend error")
	// ErrCaptionProviderError signals a captioning/OCR provider failure.
	ErrCaptionProviderError = errors.New("caption provider error")
	// ErrGeocodingProviderError signals a reverse geocoding failure.
	ErrGeocodingProviderError = errors.New("geocoding provider error")
	// ErrStorage signals a failure persisting or reading an uploaded image.
	ErrStorage = errors.New("storage error")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
