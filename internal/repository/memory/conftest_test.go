package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/db"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	putFn         func(ctx context.Context, index, id string, doc []byte) error
	getFn         func(ctx context.Context, index, id string) ([]byte, error)
	searchFn      func(ctx context.Context, index string, s *query.Search) (*query.Result, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Put(ctx context.Context, index, id string, doc []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, index, id, doc)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, index, id string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return nil, db.ErrDocumentNotFound
}

func (m *mockStore) Search(ctx context.Context, index string, s *query.Search) (*query.Result, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, s)
	}
	return &query.Result{}, nil
}

const testDims = 3

func testOptions() IndexOptions {
	return IndexOptions{Name: "memories", Dimensions: testDims, Shards: 1, Replicas: 1}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testOptions(), NewNormalizer("/storage")), ms
}

func testRecord(t *testing.T) dommem.Record {
	t.Helper()
	ts := time.Date(2024, 7, 4, 18, 30, 0, 0, time.UTC)
	rec, err := dommem.New("mem-1", "/data/uploads/image_1.jpg", "Fireworks over a lake", []float32{0.1, 0.2, 0.3}, ts)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return rec
}
