package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/memento/internal/domain"
	dommem "github.com/kailas-cloud/memento/internal/domain/memory"
	"github.com/kailas-cloud/memento/internal/domain/search/filter"
	"github.com/kailas-cloud/memento/internal/domain/search/mode"
	"github.com/kailas-cloud/memento/internal/query"
)

func TestBuild_EmptyQueryMatchesAll(t *testing.T) {
	for _, m := range []mode.Mode{mode.Hybrid, mode.Semantic, mode.Keyword} {
		t.Run(string(m), func(t *testing.T) {
			embed := &mockEmbedder{vec: []float32{1, 0, 0}}
			s, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "  ", m, filter.Set{}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if embed.called != 0 {
				t.Error("empty query must not be embedded")
			}
			if !query.Contains(s.Query, query.KindMatchAll) {
				t.Error("expected match_all")
			}
			if query.Contains(s.Query, query.KindScriptScore) || query.Contains(s.Query, query.KindMultiMatch) {
				t.Error("empty query must not score")
			}
		})
	}
}

func TestBuild_Keyword(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	s, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "fireworks", mode.Keyword, filter.Set{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called != 0 {
		t.Error("keyword mode must not embed")
	}
	if query.Contains(s.Query, query.KindScriptScore) {
		t.Error("keyword query must not contain script_score")
	}
	mm := query.Find(s.Query, query.KindMultiMatch)
	if len(mm) != 1 {
		t.Fatalf("expected one multi_match, got %d", len(mm))
	}
	got := mm[0].(query.MultiMatch)
	if got.Text != "fireworks" || got.Fuzziness != query.FuzzinessAuto {
		t.Errorf("unexpected multi_match %+v", got)
	}
	if got.Fields[0].Name != dommem.FieldDescription || got.Fields[0].Boost != 2 {
		t.Errorf("description must be boosted x2, got %+v", got.Fields[0])
	}
	if s.Size != 10 {
		t.Errorf("expected default size 10, got %d", s.Size)
	}
	if len(s.SourceExcludes) != 1 || s.SourceExcludes[0] != dommem.VectorFieldPattern {
		t.Errorf("vectors must be excluded from sources, got %v", s.SourceExcludes)
	}
	if !s.Ranked() {
		t.Error("search results must be ranked by score")
	}
}

func TestBuild_Semantic(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0}, tokens: 4}
	s, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "sunset", mode.Semantic, filter.Set{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called != 1 || embed.text != "sunset" {
		t.Errorf("expected one embedding of the query text, got %d %q", embed.called, embed.text)
	}
	if query.Contains(s.Query, query.KindMultiMatch) {
		t.Error("semantic query must not contain multi_match")
	}
	ss := query.Find(s.Query, query.KindScriptScore)
	if len(ss) != 1 {
		t.Fatalf("expected one script_score, got %d", len(ss))
	}
	got := ss[0].(query.ScriptScore)
	if got.MinScore != 1.00001 {
		t.Errorf("expected min_score 1.00001, got %v", got.MinScore)
	}
	if len(got.Terms) != 2 ||
		got.Terms[0].Field != dommem.FieldDescriptionVector || got.Terms[0].Weight != 2 || got.Terms[0].Optional ||
		got.Terms[1].Field != dommem.FieldOCRVector || got.Terms[1].Weight != 1 || !got.Terms[1].Optional {
		t.Errorf("unexpected vector terms %+v", got.Terms)
	}
}

func TestBuild_Hybrid(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	s, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "beach", mode.Hybrid, filter.Set{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := s.Query.(query.Bool)
	if len(root.Must) != 1 {
		t.Fatalf("expected one scoring clause, got %d", len(root.Must))
	}
	inner, ok := root.Must[0].(query.Bool)
	if !ok {
		t.Fatalf("expected bool scoring clause, got %T", root.Must[0])
	}
	if inner.MinimumShouldMatch != 1 || len(inner.Should) != 2 {
		t.Fatalf("hybrid must OR two clauses, got %+v", inner)
	}
	if inner.Should[0].Kind() != query.KindScriptScore || inner.Should[1].Kind() != query.KindMultiMatch {
		t.Errorf("unexpected should clauses %v %v", inner.Should[0].Kind(), inner.Should[1].Kind())
	}
	if mm := inner.Should[1].(query.MultiMatch); mm.Boost != 2 {
		t.Errorf("keyword clause must be boosted x2, got %v", mm.Boost)
	}
}

func TestBuild_EmbeddingFailure(t *testing.T) {
	embed := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	s, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "x", mode.Hybrid, filter.Set{}))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if s != nil {
		t.Error("no query may be built when embedding fails")
	}
}

func TestBuild_EmptyEmbedding(t *testing.T) {
	embed := &mockEmbedder{vec: nil}
	_, err := NewBuilder(embed).Build(context.Background(), makeRequest(t, "x", mode.Semantic, filter.Set{}))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestFilterClauses(t *testing.T) {
	lat, lon, radius := 37.33, -122.03, 1000.0
	g, err := filter.NewGeo(&lat, &lon, &radius)
	if err != nil {
		t.Fatalf("NewGeo: %v", err)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr, err := filter.NewTimeRange(&start, nil)
	if err != nil {
		t.Fatalf("NewTimeRange: %v", err)
	}
	set, err := filter.NewSet(g, tr,
		map[filter.AddressField]string{filter.City: "Cupertino", filter.Zip: "95014"},
		[]string{"family", "trip"},
		map[string]string{"camera": "pixel"})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	got := FilterClauses(set)
	if len(got) != 6 {
		t.Fatalf("expected 6 clauses, got %d: %+v", len(got), got)
	}
	if gd := got[0].(query.GeoDistance); gd.Field != dommem.FieldLocation || gd.RadiusMeters != 1000 ||
		gd.Center.Lat != lat || gd.Center.Lon != lon {
		t.Errorf("unexpected geo clause %+v", gd)
	}
	if tm := got[1].(query.Term); tm.Field != "city.keyword" || tm.Value != "Cupertino" {
		t.Errorf("unexpected city clause %+v", tm)
	}
	if tm := got[2].(query.Term); tm.Field != "zip" || tm.Value != "95014" {
		t.Errorf("unexpected zip clause %+v", tm)
	}
	if ts := got[3].(query.Terms); ts.Field != dommem.FieldTags || len(ts.Values) != 2 {
		t.Errorf("unexpected tags clause %+v", ts)
	}
	if tm := got[4].(query.Term); tm.Field != "metadata.camera" || tm.Value != "pixel" {
		t.Errorf("unexpected metadata clause %+v", tm)
	}
	r := got[5].(query.Range)
	if r.Field != dommem.FieldTimestamp || r.GTE == nil || !r.GTE.Equal(start) || r.LTE != nil || r.GT != nil || r.LT != nil {
		t.Errorf("only the given bound may be set, got %+v", r)
	}
}

func TestFilterClauses_Empty(t *testing.T) {
	if got := FilterClauses(filter.Set{}); len(got) != 0 {
		t.Errorf("expected no clauses, got %v", got)
	}
}
