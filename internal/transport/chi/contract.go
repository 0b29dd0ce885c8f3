package chi

import (
	"context"

	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/domain/upload"
	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
)

// Searcher runs memory searches and point lookups.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]dommem.View, error)
	Get(ctx context.Context, id string) (dommem.View, error)
}

// TimelineWalker pages memories around a reference time.
type TimelineWalker interface {
	Walk(ctx context.Context, c domtl.Cursor) ([]dommem.View, error)
}

// Ingester stores and indexes an uploaded image.
type Ingester interface {
	Ingest(ctx context.Context, up upload.Upload) (string, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
