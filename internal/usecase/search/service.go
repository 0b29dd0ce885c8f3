package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
	"github.com/kailas-cloud/memento/internal/query"
)

// Service handles memory search across semantic, keyword, and hybrid modes.
type Service struct {
	repo    Repository
	builder *Builder
	logger  *zap.Logger
}

// New creates a search service.
func New(repo Repository, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, builder: NewBuilder(embed), logger: logger}
}

// Search builds the query for req and returns the normalized matches, best first.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]dommem.View, error) {
	start := time.Now()
	m := string(req.Mode())
	log := logger.FromContext(ctx, s.logger)

	q, err := s.builder.Build(ctx, req)
	if err != nil {
		s.observe(m, start, err)
		log.Warn("search query not built",
			zap.String("mode", m), zap.Bool("has_text", req.HasText()), zap.Error(err))
		return nil, err
	}

	views, err := s.repo.Search(ctx, q)
	s.observe(m, start, err)
	if err != nil {
		log.Error("search failed", zap.String("mode", m), zap.Error(err))
		return nil, fmt.Errorf("search memories: %w", err)
	}

	log.Debug("search",
		zap.String("mode", m),
		zap.Bool("has_text", req.HasText()),
		zap.Int("filters", req.Filters().Len()),
		zap.Bool("semantic", query.Contains(q.Query, query.KindScriptScore)),
		zap.Int("hits", len(views)),
	)
	return views, nil
}

// Get returns a single memory by ID.
func (s *Service) Get(ctx context.Context, id string) (dommem.View, error) {
	if id == "" {
		return dommem.View{}, domain.NewValidationError("id", "is required")
	}
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return dommem.View{}, fmt.Errorf("get memory: %w", err)
	}
	return v, nil
}

func (s *Service) observe(m string, start time.Time, err error) {
	metrics.SearchDuration.WithLabelValues(m).Observe(time.Since(start).Seconds())
	metrics.SearchRequestsTotal.WithLabelValues(m, statusOf(err)).Inc()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrEmbeddingTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
