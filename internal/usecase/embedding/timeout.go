package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
)

// TimeoutEmbedder bounds every call with a deadline and rejects empty vectors.
// A call that runs out of its own deadline fails with domain.ErrEmbeddingTimeout;
// cancellation by the caller is passed through unchanged.
type TimeoutEmbedder struct {
	inner   domain.Embedder
	timeout time.Duration
}

// NewTimeoutEmbedder wraps inner. A non-positive timeout disables the deadline.
func NewTimeoutEmbedder(inner domain.Embedder, timeout time.Duration) *TimeoutEmbedder {
	return &TimeoutEmbedder{inner: inner, timeout: timeout}
}

// Embed calls the inner embedder under the configured deadline.
func (e *TimeoutEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.inner.Embed(callCtx, text)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.EmbeddingResult{}, fmt.Errorf("%w after %s: %w", domain.ErrEmbeddingTimeout, e.timeout, err)
		}
		return domain.EmbeddingResult{}, err
	}
	if len(result.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingProviderError)
	}
	return result, nil
}
