package search

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/db/memindex"
	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	"github.com/kailas-cloud/memento/internal/query"
	memrepo "github.com/kailas-cloud/memento/internal/repository/memory"
)

type mockRepo struct {
	views   []dommem.View
	err     error
	last    *query.Search
	calls   int
	getView dommem.View
	getErr  error
}

func (m *mockRepo) Search(_ context.Context, s *query.Search) ([]dommem.View, error) {
	m.calls++
	m.last = s
	return m.views, m.err
}

func (m *mockRepo) Get(_ context.Context, _ string) (dommem.View, error) {
	return m.getView, m.getErr
}

type mockEmbedder struct {
	vec    []float32
	err    error
	tokens int
	called int
	text   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called++
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, nil
}

func makeRequest(t *testing.T, text string, m mode.Mode, filters filter.Set) *request.Request {
	t.Helper()
	r, err := request.New(text, m, filters, 0)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

const testDims = 3

var testTime = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

// newIndexedRepo returns a repository over an in-memory index.
func newIndexedRepo(t *testing.T) *memrepo.Repo {
	t.Helper()
	repo := memrepo.New(memindex.New(),
		memrepo.IndexOptions{Name: "memories", Dimensions: testDims, Shards: 1, Replicas: 1},
		memrepo.NewNormalizer("/storage"))
	if _, err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	return repo
}

func seed(t *testing.T, repo *memrepo.Repo, id, description string, vec []float32, opts ...func(dommem.Record) dommem.Record) {
	t.Helper()
	rec, err := dommem.New(id, "/data/"+id+".jpg", description, vec, testTime)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	for _, o := range opts {
		rec = o(rec)
	}
	if err := repo.Upsert(context.Background(), &rec); err != nil {
		t.Fatalf("Upsert %s: %v", id, err)
	}
}

func ids(views []dommem.View) map[string]bool {
	out := make(map[string]bool, len(views))
	for _, v := range views {
		out[v.ID] = true
	}
	return out
}
