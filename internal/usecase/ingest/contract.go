package ingest

import (
	"context"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
)

// Storage persists uploaded images.
type Storage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, path string) error
}

// Captioner describes an image in natural language.
type Captioner interface {
	Describe(ctx context.Context, image []byte) (string, error)
}

// TextExtractor transcribes text visible in an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Geocoder resolves coordinates to an address.
type Geocoder interface {
	Reverse(ctx context.Context, p geo.Point) (dommem.Address, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository stores memory records.
type Repository interface {
	Upsert(ctx context.Context, rec *dommem.Record) error
}
