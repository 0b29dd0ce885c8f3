package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/logger"
)

// InstrumentedEmbedder logs each embedding, records token usage in the
// request's usage collector and rejects vectors the index cannot store.
// Provider metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	dimensions int
	logger     *zap.Logger
}

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithDimensions rejects vectors whose length is not n with ErrVectorDimMismatch.
func WithDimensions(n int) Option {
	return func(e *InstrumentedEmbedder) { e.dimensions = n }
}

// NewInstrumentedEmbedder wraps inner.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, log *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	e := &InstrumentedEmbedder{inner: inner, provider: provider, model: model, logger: log}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Embed delegates to the inner embedder and validates the vector.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx, e.logger).With(
		zap.String("provider", e.provider),
		zap.String("model", e.model),
	)
	start := time.Now()
	res, err := e.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	if err == nil {
		err = e.check(res)
	}
	if err != nil {
		log.Error("embedding failed",
			zap.Duration("duration", elapsed),
			zap.Int("text_len", len(text)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	log.Debug("embedding done",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
		zap.Bool("cached", res.TotalTokens == 0),
	)
	return res, nil
}

func (e *InstrumentedEmbedder) check(res domain.EmbeddingResult) error {
	if len(res.Embedding) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrEmbeddingProviderError)
	}
	if e.dimensions > 0 && len(res.Embedding) != e.dimensions {
		return fmt.Errorf("%w: got %d, index expects %d",
			domain.ErrVectorDimMismatch, len(res.Embedding), e.dimensions)
	}
	return nil
}
