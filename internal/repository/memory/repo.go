package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/query"
)

// store is the consumer interface for the memory index (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, index, id string, doc []byte) error
	Get(ctx context.Context, index, id string) ([]byte, error)
	Search(ctx context.Context, index string, s *query.Search) (*query.Result, error)
}

// IndexOptions fixes the physical layout of the memory index.
type IndexOptions struct {
	Name       string
	Dimensions int
	Shards     int
	Replicas   int
}

// Repo implements the memory repository over a search index.
type Repo struct {
	store      store
	opts       IndexOptions
	normalizer *Normalizer
}

// New creates a memory repository.
func New(s store, opts IndexOptions, normalizer *Normalizer) *Repo {
	return &Repo{store: s, opts: opts, normalizer: normalizer}
}

// Mapping returns the memory index definition.
func Mapping(opts IndexOptions) (*db.IndexDefinition, error) {
	return db.NewIndex(opts.Name).
		Shards(opts.Shards).
		Replicas(opts.Replicas).
		Keyword(dommem.FieldID).
		Keyword(dommem.FieldImagePath).
		TextWithKeyword(dommem.FieldDescription, "english").
		DenseVector(dommem.FieldDescriptionVector, opts.Dimensions, db.SimilarityCosine).
		Text(dommem.FieldOCRText, "english").
		DenseVector(dommem.FieldOCRVector, opts.Dimensions, db.SimilarityCosine).
		GeoPoint(dommem.FieldLocation).
		Text(dommem.FieldAddress, "").
		TextWithKeyword(dommem.FieldCity, "").
		TextWithKeyword(dommem.FieldState, "").
		Keyword(dommem.FieldZip).
		TextWithKeyword(dommem.FieldCountry, "").
		KeywordObject(dommem.FieldMetadata).
		Keyword(dommem.FieldTags).
		Date(dommem.FieldTimestamp).
		Build()
}

// EnsureIndex creates the memory index if missing. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.opts.Name)
	if err != nil {
		return false, fmt.Errorf("%w: check index %s: %w", domain.ErrSearchBackend, r.opts.Name, err)
	}
	if exists {
		return false, nil
	}

	def, err := Mapping(r.opts)
	if err != nil {
		return false, fmt.Errorf("build mapping: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("%w: create index %s: %w", domain.ErrSearchBackend, r.opts.Name, err)
	}
	return true, nil
}

// Upsert indexes a record, replacing any record with the same ID.
func (r *Repo) Upsert(ctx context.Context, rec *dommem.Record) error {
	if err := rec.CheckDimensions(r.opts.Dimensions); err != nil {
		return err
	}
	data, err := json.Marshal(toDocument(rec))
	if err != nil {
		return fmt.Errorf("marshal memory %s: %w", rec.ID(), err)
	}
	if err := r.store.Put(ctx, r.opts.Name, rec.ID(), data); err != nil {
		if errors.Is(err, db.ErrDimensionMismatch) {
			return fmt.Errorf("%w: %w", domain.ErrVectorDimMismatch, err)
		}
		return fmt.Errorf("%w: index memory %s: %w", domain.ErrSearchBackend, rec.ID(), err)
	}
	return nil
}

// Get returns one memory by ID, without a score.
func (r *Repo) Get(ctx context.Context, id string) (dommem.View, error) {
	raw, err := r.store.Get(ctx, r.opts.Name, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return dommem.View{}, domain.ErrNotFound
		}
		return dommem.View{}, fmt.Errorf("%w: get memory %s: %w", domain.ErrSearchBackend, id, err)
	}
	return r.normalizer.Normalize(query.Hit{ID: id, Source: raw}, false)
}

// Search submits s and normalizes the hits. Scores are kept only for ranked searches.
func (r *Repo) Search(ctx context.Context, s *query.Search) ([]dommem.View, error) {
	res, err := r.store.Search(ctx, r.opts.Name, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchBackend, err)
	}
	return r.normalizer.NormalizeAll(ctx, res, s.Ranked()), nil
}
