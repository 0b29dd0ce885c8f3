package timeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/db/memindex"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	domtl "github.com/kailas-cloud/memento/internal/domain/timeline"
	"github.com/kailas-cloud/memento/internal/query"
	memrepo "github.com/kailas-cloud/memento/internal/repository/memory"
)

// mockRepo fails searches sorted in the failOrder direction and delegates the rest.
type mockRepo struct {
	inner     Repository
	failOrder query.Order
	calls     int
}

func (m *mockRepo) Search(ctx context.Context, s *query.Search) ([]dommem.View, error) {
	m.calls++
	if len(s.Sort) > 0 && s.Sort[0].Order == m.failOrder {
		return nil, errors.New("search memories: boom")
	}
	return m.inner.Search(ctx, s)
}

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// at returns the timestamp of the i-th seeded memory.
func at(i int) time.Time { return base.Add(time.Duration(i) * time.Hour) }

// seededRepo indexes n memories one hour apart starting at base.
func seededRepo(t *testing.T, n int) *memrepo.Repo {
	t.Helper()
	ctx := context.Background()
	repo := memrepo.New(memindex.New(),
		memrepo.IndexOptions{Name: "memories", Dimensions: 2, Shards: 1, Replicas: 1},
		memrepo.NewNormalizer("/storage"))
	if _, err := repo.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	for i := range n {
		rec, err := dommem.New(fmt.Sprintf("m%d", i), fmt.Sprintf("/data/image_%d.jpg", i),
			"Memory", []float32{1, 0}, at(i))
		if err != nil {
			t.Fatalf("memory.New: %v", err)
		}
		if err := repo.Upsert(ctx, &rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	return repo
}

func cursor(t *testing.T, ref time.Time, d domtl.Direction, limit int, inclusive bool) domtl.Cursor {
	t.Helper()
	c, err := domtl.NewCursor(ref, d, limit, inclusive)
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	return c
}
