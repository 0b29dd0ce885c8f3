package search

import (
	"context"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/query"
)

// Repository runs built queries against the memory index.
type Repository interface {
	Search(ctx context.Context, s *query.Search) ([]dommem.View, error)
	Get(ctx context.Context, id string) (dommem.View, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
