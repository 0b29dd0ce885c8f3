package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	"github.com/kailas-cloud/memento/internal/query"
)

// Scoring constants.
const (
	// SemanticMinScore drops documents whose shifted-cosine sum shows no
	// positive similarity. It sits just above the 1.0 a document with
	// orthogonal description and no OCR would score.
	SemanticMinScore = 1.00001

	descriptionWeight  = 2.0
	ocrWeight          = 1.0
	hybridKeywordBoost = 2.0
)

// KeywordFields are the full-text fields matched by keyword search, with boosts.
var KeywordFields = []query.BoostedField{
	{Name: dommem.FieldDescription, Boost: 2},
	{Name: dommem.FieldOCRText, Boost: 1},
	{Name: dommem.FieldAddress, Boost: 1},
	{Name: dommem.FieldCity, Boost: 1},
	{Name: dommem.FieldState, Boost: 1},
	{Name: dommem.FieldCountry, Boost: 1},
}

// Builder turns a validated search request into an index query.
type Builder struct {
	embed Embedder
}

// NewBuilder creates a query builder that vectorizes text with embed.
func NewBuilder(embed Embedder) *Builder {
	return &Builder{embed: embed}
}

// Build composes the scoring clause for the request's mode and wraps it
// with the request's filters. Nothing is embedded when the query text is empty.
func (b *Builder) Build(ctx context.Context, req *request.Request) (*query.Search, error) {
	scoring, err := b.scoring(ctx, req)
	if err != nil {
		return nil, err
	}
	return &query.Search{
		Query: query.Bool{
			Must:   []query.Clause{scoring},
			Filter: FilterClauses(req.Filters()),
		},
		Size:           req.Limit(),
		SourceExcludes: []string{dommem.VectorFieldPattern},
	}, nil
}

func (b *Builder) scoring(ctx context.Context, req *request.Request) (query.Clause, error) {
	if !req.HasText() {
		return query.MatchAll{}, nil
	}

	switch req.Mode() {
	case mode.Keyword:
		return keywordClause(req.Query(), 0), nil
	case mode.Semantic:
		vec, err := b.vectorize(ctx, req.Query())
		if err != nil {
			return nil, err
		}
		return semanticClause(vec), nil
	case mode.Hybrid:
		vec, err := b.vectorize(ctx, req.Query())
		if err != nil {
			return nil, err
		}
		return query.Bool{
			Should: []query.Clause{
				semanticClause(vec),
				keywordClause(req.Query(), hybridKeywordBoost),
			},
			MinimumShouldMatch: 1,
		}, nil
	default:
		return nil, domain.NewValidationError("mode", fmt.Sprintf("unsupported search mode %q", req.Mode()))
	}
}

func (b *Builder) vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := b.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("vectorize query: %w: empty embedding", domain.ErrEmbeddingProviderError)
	}
	return res.Embedding, nil
}

func semanticClause(vec []float32) query.ScriptScore {
	return query.ScriptScore{
		Query:  query.MatchAll{},
		Vector: vec,
		Terms: []query.VectorTerm{
			{Field: dommem.FieldDescriptionVector, Weight: descriptionWeight},
			{Field: dommem.FieldOCRVector, Weight: ocrWeight, Optional: true},
		},
		MinScore: SemanticMinScore,
	}
}

func keywordClause(text string, boost float64) query.MultiMatch {
	return query.MultiMatch{
		Text:      text,
		Fields:    KeywordFields,
		Fuzziness: query.FuzzinessAuto,
		Boost:     boost,
	}
}

// FilterClauses translates a filter set into non-scoring clauses. Text
// address fields are matched on their keyword sub-field; zip is stored as a
// keyword already.
func FilterClauses(s filter.Set) []query.Clause {
	out := make([]query.Clause, 0, s.Len())

	if g := s.Geo(); g != nil {
		out = append(out, query.GeoDistance{
			Field:        dommem.FieldLocation,
			Center:       g.Center(),
			RadiusMeters: g.RadiusMeters(),
		})
	}

	for _, t := range s.Address() {
		field := t.Field
		if filter.AddressField(t.Field) != filter.Zip {
			field += ".keyword"
		}
		out = append(out, query.Term{Field: field, Value: t.Value})
	}

	if tags := s.Tags(); len(tags) > 0 {
		out = append(out, query.Terms{Field: dommem.FieldTags, Values: tags})
	}

	for _, t := range s.Metadata() {
		out = append(out, query.Term{Field: dommem.FieldMetadata + "." + t.Field, Value: t.Value})
	}

	if tr := s.TimeRange(); tr != nil {
		out = append(out, query.Range{
			Field: dommem.FieldTimestamp,
			GTE:   tr.Start(),
			LTE:   tr.End(),
		})
	}
	return out
}
