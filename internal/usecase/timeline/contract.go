package timeline

import (
	"context"

	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/query"
)

// Repository runs built queries against the memory index.
type Repository interface {
	Search(ctx context.Context, s *query.Search) ([]dommem.View, error)
}
