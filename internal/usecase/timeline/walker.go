// Package timeline pages memories chronologically around a reference time.
package timeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
	"github.com/kailas-cloud/memento/internal/query"
)

// Walker answers timeline cursors. Results are always in ascending time order.
type Walker struct {
	repo   Repository
	logger *zap.Logger
}

// NewWalker creates a timeline walker.
func NewWalker(repo Repository, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{repo: repo, logger: logger}
}

// Walk returns up to c.Limit() memories on each requested side of the
// reference. A side whose query fails contributes nothing; the error is
// logged, not returned. Only cancellation of ctx is reported.
func (w *Walker) Walk(ctx context.Context, c domtl.Cursor) ([]dommem.View, error) {
	var out []dommem.View

	switch c.Direction() {
	case domtl.Before, domtl.After:
		out = w.side(ctx, c)
	case domtl.Both:
		var before, after []dommem.View
		var g errgroup.Group
		g.Go(func() error {
			before = w.side(ctx, c.Toward(domtl.Before, false))
			return nil
		})
		g.Go(func() error {
			after = w.side(ctx, c.Toward(domtl.After, true))
			return nil
		})
		_ = g.Wait()
		out = append(before, after...)
	default:
		return nil, fmt.Errorf("unsupported timeline direction %q", c.Direction())
	}

	if err := ctx.Err(); err != nil {
		metrics.TimelineRequestsTotal.WithLabelValues(string(c.Direction()), "canceled").Inc()
		return nil, fmt.Errorf("timeline: %w", err)
	}
	metrics.TimelineRequestsTotal.WithLabelValues(string(c.Direction()), "ok").Inc()
	if out == nil {
		out = []dommem.View{}
	}
	return out, nil
}

func (w *Walker) side(ctx context.Context, c domtl.Cursor) []dommem.View {
	views, err := w.repo.Search(ctx, Query(c))
	if err != nil {
		metrics.TimelineDegradedTotal.WithLabelValues(string(c.Direction())).Inc()
		logger.FromContext(ctx, w.logger).Warn("timeline direction degraded",
			zap.String("direction", string(c.Direction())),
			zap.Time("reference", c.Reference()),
			zap.Bool("inclusive", c.Inclusive()),
			zap.Error(err),
		)
		return nil
	}
	if c.Direction() == domtl.Before {
		slices.Reverse(views)
	}
	return views
}

// Query builds the single-direction query for c: nearest memories first,
// sorted by timestamp away from the reference.
func Query(c domtl.Cursor) *query.Search {
	ref := c.Reference()
	r := query.Range{Field: dommem.FieldTimestamp}
	order := query.Asc

	switch c.Direction() {
	case domtl.Before:
		order = query.Desc
		if c.Inclusive() {
			r.LTE = timePtr(ref)
		} else {
			r.LT = timePtr(ref)
		}
	default:
		if c.Inclusive() {
			r.GTE = timePtr(ref)
		} else {
			r.GT = timePtr(ref)
		}
	}

	return &query.Search{
		Query:          query.Bool{Filter: []query.Clause{r}},
		Size:           c.Limit(),
		Sort:           []query.Sort{{Field: dommem.FieldTimestamp, Order: order}},
		SourceExcludes: []string{dommem.VectorFieldPattern},
	}
}

func timePtr(t time.Time) *time.Time { return &t }
