// Package query defines a backend-agnostic search query tree.
//
// Builders compose Clause values; index backends serialize them to their
// native wire format (internal/db/elastic) or evaluate them directly
// (internal/db/memindex).
package query

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/memento/internal/domain/geo"
)

// Kind tags a Clause variant.
type Kind string

// Clause kinds.
const (
	KindMatchAll    Kind = "match_all"
	KindMultiMatch  Kind = "multi_match"
	KindScriptScore Kind = "script_score"
	KindBool        Kind = "bool"
	KindTerm        Kind = "term"
	KindTerms       Kind = "terms"
	KindRange       Kind = "range"
	KindGeoDistance Kind = "geo_distance"
)

// Clause is a node of the query tree. The set of implementations is closed.
type Clause interface {
	Kind() Kind
}

// MatchAll matches every document with a constant score.
type MatchAll struct{}

// Kind implements Clause.
func (MatchAll) Kind() Kind { return KindMatchAll }

// FuzzinessAuto scales the allowed edit distance with term length.
const FuzzinessAuto = "AUTO"

// BoostedField is a full-text field with a relative weight.
type BoostedField struct {
	Name  string
	Boost float64
}

// MultiMatch is a best-fields full-text match across several fields.
type MultiMatch struct {
	Text      string
	Fields    []BoostedField
	Fuzziness string
	// Boost multiplies the clause score; 0 means no boost.
	Boost float64
}

// Kind implements Clause.
func (MultiMatch) Kind() Kind { return KindMultiMatch }

// VectorTerm is one additive component of a similarity score:
// Weight * (cosine(query, Field) + 1). An Optional term contributes 0 when
// the document has no value for Field.
type VectorTerm struct {
	Field    string
	Weight   float64
	Optional bool
}

// ScriptScore rescores documents matched by Query with a weighted sum of
// shifted cosine similarities. Documents scoring below MinScore are dropped.
type ScriptScore struct {
	Query    Clause
	Vector   []float32
	Terms    []VectorTerm
	MinScore float64
}

// Kind implements Clause.
func (ScriptScore) Kind() Kind { return KindScriptScore }

// Bool composes clauses. Must and Should contribute score; Filter does not.
type Bool struct {
	Must               []Clause
	Should             []Clause
	Filter             []Clause
	MinimumShouldMatch int
}

// Kind implements Clause.
func (Bool) Kind() Kind { return KindBool }

// Term is an exact match on a single value.
type Term struct {
	Field string
	Value string
}

// Kind implements Clause.
func (Term) Kind() Kind { return KindTerm }

// Terms matches when the field holds any of Values.
type Terms struct {
	Field  string
	Values []string
}

// Kind implements Clause.
func (Terms) Kind() Kind { return KindTerms }

// Range bounds a date field. Nil bounds are open.
type Range struct {
	Field string
	GT    *time.Time
	GTE   *time.Time
	LT    *time.Time
	LTE   *time.Time
}

// Kind implements Clause.
func (Range) Kind() Kind { return KindRange }

// GeoDistance keeps documents whose geo-point lies within RadiusMeters of Center.
type GeoDistance struct {
	Field        string
	Center       geo.Point
	RadiusMeters float64
}

// Kind implements Clause.
func (GeoDistance) Kind() Kind { return KindGeoDistance }

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort orders hits by a field instead of relevance.
type Sort struct {
	Field string
	Order Order
}

// Search is a complete request to an index.
type Search struct {
	Query          Clause
	Size           int
	Sort           []Sort
	SourceExcludes []string
}

// Ranked reports whether hits are ordered by relevance score.
func (s *Search) Ranked() bool { return len(s.Sort) == 0 }

// Hit is one matching document. Score is nil when the search was sorted by field.
type Hit struct {
	ID     string
	Score  *float64
	Source json.RawMessage
}

// Result is the output of a search.
type Result struct {
	Total int
	Hits  []Hit
}

// Walk visits c and its descendants depth-first. Returning false from fn
// stops descent into the current node's children.
func Walk(c Clause, fn func(Clause) bool) {
	if c == nil || !fn(c) {
		return
	}
	switch v := c.(type) {
	case ScriptScore:
		Walk(v.Query, fn)
	case *ScriptScore:
		Walk(v.Query, fn)
	case Bool:
		walkAll(v, fn)
	case *Bool:
		walkAll(*v, fn)
	}
}

func walkAll(b Bool, fn func(Clause) bool) {
	for _, group := range [][]Clause{b.Must, b.Should, b.Filter} {
		for _, child := range group {
			Walk(child, fn)
		}
	}
}

// Contains reports whether any node of the tree rooted at c has kind k.
func Contains(c Clause, k Kind) bool {
	found := false
	Walk(c, func(n Clause) bool {
		if n.Kind() == k {
			found = true
		}
		return !found
	})
	return found
}

// Find returns every node of kind k in depth-first order.
func Find(c Clause, k Kind) []Clause {
	var out []Clause
	Walk(c, func(n Clause) bool {
		if n.Kind() == k {
			out = append(out, n)
		}
		return true
	})
	return out
}
