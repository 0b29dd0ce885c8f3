// Package memindex is an in-process implementation of db.Index that
// evaluates query trees directly against stored JSON documents.
package memindex

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/query"
)

// Compile-time check: Store implements db.Index.
var _ db.Index = (*Store)(nil)

type index struct {
	def  *db.IndexDefinition
	docs map[string]map[string]any
}

// Store keeps indexes in memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{indexes: make(map[string]*index)}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	}
	s.indexes[def.Name] = &index{def: def, docs: make(map[string]map[string]any)}
	return nil
}

// IndexExists reports whether the named index was created.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// Put stores a document, replacing any existing one with the same id.
// Dense vectors must match the declared mapping dimension.
func (s *Store) Put(_ context.Context, name, id string, doc []byte) error {
	var src map[string]any
	if err := json.Unmarshal(doc, &src); err != nil {
		return &db.Error{Op: db.OpIndex, Err: fmt.Errorf("decode document: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		return &db.Error{Op: db.OpIndex, Err: db.ErrIndexNotFound}
	}
	for field, dim := range idx.def.VectorDims() {
		v, present := src[field]
		if !present || v == nil {
			continue
		}
		arr, isArr := v.([]any)
		if !isArr || len(arr) != dim {
			return &db.Error{Op: db.OpIndex, Err: fmt.Errorf("%w: field %s", db.ErrDimensionMismatch, field)}
		}
	}
	idx.docs[id] = src
	return nil
}

// Get returns the stored document.
func (s *Store) Get(_ context.Context, name, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return nil, &db.Error{Op: db.OpGetDoc, Err: db.ErrIndexNotFound}
	}
	src, ok := idx.docs[id]
	if !ok {
		return nil, db.ErrDocumentNotFound
	}
	data, err := json.Marshal(src)
	if err != nil {
		return nil, &db.Error{Op: db.OpGetDoc, Err: err}
	}
	return data, nil
}

type scored struct {
	id    string
	score float64
	src   map[string]any
}

// Search evaluates the query tree against every document of the index.
func (s *Store) Search(ctx context.Context, name string, q *query.Search) (*query.Result, error) {
	s.mu.RLock()
	idx, ok := s.indexes[name]
	if !ok {
		s.mu.RUnlock()
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	clause := q.Query
	if clause == nil {
		clause = query.MatchAll{}
	}

	var matches []scored
	for id, src := range idx.docs {
		if err := ctx.Err(); err != nil {
			s.mu.RUnlock()
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		ok, score, err := eval(clause, src)
		if err != nil {
			s.mu.RUnlock()
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		if ok {
			matches = append(matches, scored{id: id, score: score, src: src})
		}
	}
	s.mu.RUnlock()

	sortMatches(matches, q.Sort)

	total := len(matches)
	if q.Size >= 0 && len(matches) > q.Size {
		matches = matches[:q.Size]
	}

	res := &query.Result{Total: total, Hits: make([]query.Hit, 0, len(matches))}
	for _, m := range matches {
		data, err := json.Marshal(excludeFields(m.src, q.SourceExcludes))
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		hit := query.Hit{ID: m.id, Source: data}
		if q.Ranked() {
			score := m.score
			hit.Score = &score
		}
		res.Hits = append(res.Hits, hit)
	}
	return res, nil
}

func sortMatches(ms []scored, sorts []query.Sort) {
	if len(sorts) == 0 {
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].score != ms[j].score {
				return ms[i].score > ms[j].score
			}
			return ms[i].id < ms[j].id
		})
		return
	}
	sort.SliceStable(ms, func(i, j int) bool {
		for _, srt := range sorts {
			c := compareField(lookup(ms[i].src, srt.Field), lookup(ms[j].src, srt.Field))
			if c == 0 {
				continue
			}
			if srt.Order == query.Desc {
				return c > 0
			}
			return c < 0
		}
		return ms[i].id < ms[j].id
	})
}

// excludeFields drops top-level fields matching any glob pattern.
func excludeFields(src map[string]any, patterns []string) map[string]any {
	if len(patterns) == 0 {
		return src
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		drop := false
		for _, p := range patterns {
			if ok, _ := path.Match(p, k); ok {
				drop = true
				break
			}
		}
		if !drop {
			out[k] = v
		}
	}
	return out
}
