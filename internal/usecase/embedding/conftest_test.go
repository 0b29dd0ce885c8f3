package embedding

import (
	"context"

	"github.com/kailas-cloud/memento/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	embed  func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embed != nil {
		return m.embed(ctx, text)
	}
	return m.result, m.err
}
