package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Set
	limit      int
}

// New validates and normalizes search parameters.
// Query text is optional: an empty query matches every record that passes the filters.
// Defaults: mode=hybrid, limit=10. Limit is clamped to MaxLimit.
func New(query string, m mode.Mode, filters filter.Set, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if len(query) > MaxQueryLength {
		return Request{}, domain.NewValidationError("query", fmt.Sprintf("too long (max %d chars)", MaxQueryLength))
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, domain.NewValidationError("mode", fmt.Sprintf("invalid search mode %q", m))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		query:      query,
		searchMode: m,
		filters:    filters,
		limit:      limit,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// HasText reports whether the request carries query text.
func (r *Request) HasText() bool { return r.query != "" }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the non-scoring constraints.
func (r *Request) Filters() filter.Set { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }
