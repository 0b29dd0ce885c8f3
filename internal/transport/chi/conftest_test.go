package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/db/memindex"
	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/request"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/domain/upload"
	memrepo "github.com/kailas-cloud/memento/internal/repository/memory"
	healthuc "github.com/kailas-cloud/memento/internal/usecase/health"
	searchuc "github.com/kailas-cloud/memento/internal/usecase/search"
	timelineuc "github.com/kailas-cloud/memento/internal/usecase/timeline"
)

type mockSearcher struct {
	views   []dommem.View
	err     error
	last    *request.Request
	calls   int
	getView dommem.View
	getErr  error
	getID   string
	tokens  int
}

func (m *mockSearcher) Search(ctx context.Context, req *request.Request) ([]dommem.View, error) {
	m.calls++
	m.last = req
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.views, m.err
}

func (m *mockSearcher) Get(_ context.Context, id string) (dommem.View, error) {
	m.getID = id
	return m.getView, m.getErr
}

type mockWalker struct {
	views  []dommem.View
	err    error
	cursor domtl.Cursor
	calls  int
}

func (m *mockWalker) Walk(_ context.Context, c domtl.Cursor) ([]dommem.View, error) {
	m.calls++
	m.cursor = c
	return m.views, m.err
}

type mockIngester struct {
	id    string
	err   error
	last  upload.Upload
	calls int
}

func (m *mockIngester) Ingest(_ context.Context, up upload.Upload) (string, error) {
	m.calls++
	m.last = up
	return m.id, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	search   *mockSearcher
	timeline *mockWalker
	ingest   *mockIngester
	health   *mockHealth
	handler  http.Handler
}

func newFixture(t *testing.T, opts RouterOptions, serverOpts ...ServerOption) *fixture {
	t.Helper()
	f := &fixture{
		search:   &mockSearcher{},
		timeline: &mockWalker{},
		ingest:   &mockIngester{id: "mem-1"},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentIndex: healthuc.CheckOK},
		}},
	}
	srv := NewServer(f.search, f.timeline, f.ingest, f.health, nil, serverOpts...)
	f.handler = NewRouter(srv, opts)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

// pngImage is a 1x1 transparent PNG, base64-encoded.
const pngImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

const testDims = 3

var testTime = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

type fixedEmbedder struct{ vec []float32 }

func (e fixedEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 4}, nil
}

// newIndexedHandler wires the real search and timeline services over an in-memory index.
func newIndexedHandler(t *testing.T) (http.Handler, *memrepo.Repo) {
	t.Helper()
	repo := memrepo.New(memindex.New(),
		memrepo.IndexOptions{Name: "memories", Dimensions: testDims, Shards: 1, Replicas: 1},
		memrepo.NewNormalizer("/storage"))
	if _, err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	search := searchuc.New(repo, fixedEmbedder{vec: []float32{1, 0, 0}}, nil)
	walker := timelineuc.NewWalker(repo, nil)
	health := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	return NewRouter(NewServer(search, walker, &mockIngester{}, health, nil), RouterOptions{}), repo
}

func seedRecord(t *testing.T, repo *memrepo.Repo, id, description string, ts time.Time, loc *geo.Point) {
	t.Helper()
	rec, err := dommem.New(id, "/data/"+id+".jpg", description, []float32{1, 0, 0}, ts)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	if loc != nil {
		if rec, err = rec.WithLocation(*loc); err != nil {
			t.Fatalf("WithLocation: %v", err)
		}
	}
	if err := repo.Upsert(context.Background(), &rec); err != nil {
		t.Fatalf("Upsert %s: %v", id, err)
	}
}
