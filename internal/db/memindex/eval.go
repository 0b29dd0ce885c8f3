package memindex

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/domain/geo"
	"github.com/kailas-cloud/memento/internal/query"
)

var errZeroMagnitude = errors.New("cosine similarity does not support vectors with zero magnitude")

// eval reports whether src matches c and the score it contributes.
func eval(c query.Clause, src map[string]any) (bool, float64, error) {
	switch v := c.(type) {
	case query.MatchAll:
		return true, 1, nil
	case query.MultiMatch:
		ok, score := evalMultiMatch(v, src)
		return ok, score, nil
	case query.ScriptScore:
		return evalScriptScore(v, src)
	case query.Bool:
		return evalBool(v, src)
	case query.Term:
		return anyValue(lookup(src, v.Field), func(x any) bool { return fmt.Sprint(x) == v.Value }), 0, nil
	case query.Terms:
		want := make(map[string]bool, len(v.Values))
		for _, val := range v.Values {
			want[val] = true
		}
		return anyValue(lookup(src, v.Field), func(x any) bool { return want[fmt.Sprint(x)] }), 0, nil
	case query.Range:
		return evalRange(v, src), 0, nil
	case query.GeoDistance:
		p, ok := toPoint(lookup(src, v.Field))
		if !ok {
			return false, 0, nil
		}
		return p.DistanceTo(v.Center) <= v.RadiusMeters, 0, nil
	default:
		return false, 0, fmt.Errorf("%w: %T", db.ErrUnsupportedQuery, c)
	}
}

func evalBool(b query.Bool, src map[string]any) (bool, float64, error) {
	var score float64
	for _, c := range b.Must {
		ok, s, err := eval(c, src)
		if err != nil || !ok {
			return false, 0, err
		}
		score += s
	}
	for _, c := range b.Filter {
		ok, _, err := eval(c, src)
		if err != nil || !ok {
			return false, 0, err
		}
	}

	matched := 0
	for _, c := range b.Should {
		ok, s, err := eval(c, src)
		if err != nil {
			return false, 0, err
		}
		if ok {
			matched++
			score += s
		}
	}
	msm := b.MinimumShouldMatch
	if msm == 0 && len(b.Must) == 0 && len(b.Filter) == 0 && len(b.Should) > 0 {
		msm = 1
	}
	if matched < msm {
		return false, 0, nil
	}
	if len(b.Must) == 0 && len(b.Should) == 0 && len(b.Filter) == 0 {
		return true, 1, nil
	}
	return true, score, nil
}

func evalScriptScore(s query.ScriptScore, src map[string]any) (bool, float64, error) {
	inner := s.Query
	if inner == nil {
		inner = query.MatchAll{}
	}
	ok, _, err := eval(inner, src)
	if err != nil || !ok {
		return false, 0, err
	}

	var score float64
	for _, t := range s.Terms {
		vec, present := toVector(lookup(src, t.Field))
		if !present {
			if t.Optional {
				continue
			}
			return false, 0, fmt.Errorf("script_score: document has no value for %s", t.Field)
		}
		cos, err := cosine(s.Vector, vec)
		if err != nil {
			return false, 0, fmt.Errorf("script_score: %s: %w", t.Field, err)
		}
		score += t.Weight * (cos + 1)
	}
	if score < s.MinScore {
		return false, 0, nil
	}
	return true, score, nil
}

// evalMultiMatch scores best_fields: the best single field wins.
func evalMultiMatch(m query.MultiMatch, src map[string]any) (bool, float64) {
	terms := tokenize(m.Text)
	if len(terms) == 0 {
		return false, 0
	}
	auto := m.Fuzziness == query.FuzzinessAuto

	var best float64
	for _, f := range m.Fields {
		text, _ := lookup(src, f.Name).(string)
		if text == "" {
			continue
		}
		docTerms := tokenize(text)
		hits := 0
		for _, qt := range terms {
			for _, dt := range docTerms {
				if termMatches(qt, dt, auto) {
					hits++
					break
				}
			}
		}
		boost := f.Boost
		if boost == 0 {
			boost = 1
		}
		if s := boost * float64(hits) / float64(len(terms)); s > best {
			best = s
		}
	}
	if best == 0 {
		return false, 0
	}
	if m.Boost != 0 {
		best *= m.Boost
	}
	return true, best
}

func evalRange(r query.Range, src map[string]any) bool {
	raw, _ := lookup(src, r.Field).(string)
	t, ok := parseTime(raw)
	if !ok {
		return false
	}
	if r.GT != nil && !t.After(*r.GT) {
		return false
	}
	if r.GTE != nil && t.Before(*r.GTE) {
		return false
	}
	if r.LT != nil && !t.Before(*r.LT) {
		return false
	}
	if r.LTE != nil && t.After(*r.LTE) {
		return false
	}
	return true
}

// lookup resolves a dotted field path. A trailing ".keyword" addresses the
// exact value of its parent text field.
func lookup(src map[string]any, field string) any {
	field = strings.TrimSuffix(field, ".keyword")
	var cur any = src
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func anyValue(v any, pred func(any) bool) bool {
	switch x := v.(type) {
	case nil:
		return false
	case []any:
		for _, e := range x {
			if pred(e) {
				return true
			}
		}
		return false
	default:
		return pred(x)
	}
}

func compareField(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, atok := parseTime(as)
		bt, btok := parseTime(bs)
		if atok && btok {
			return at.Compare(bt)
		}
		return strings.Compare(as, bs)
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toPoint(v any) (geo.Point, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return geo.Point{}, false
	}
	lat, latOK := m["lat"].(float64)
	lon, lonOK := m["lon"].(float64)
	return geo.Point{Lat: lat, Lon: lon}, latOK && lonOK
}

func toVector(v any) ([]float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		f, ok := e.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func cosine(q []float32, d []float64) (float64, error) {
	if len(q) != len(d) {
		return 0, fmt.Errorf("%w: query %d, document %d", db.ErrDimensionMismatch, len(q), len(d))
	}
	var dot, nq, nd float64
	for i := range q {
		qf := float64(q[i])
		dot += qf * d[i]
		nq += qf * qf
		nd += d[i] * d[i]
	}
	if nq == 0 || nd == 0 {
		return 0, errZeroMagnitude
	}
	return dot / (math.Sqrt(nq) * math.Sqrt(nd)), nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termMatches applies AUTO fuzziness: 0 edits up to 2 runes, 1 up to 5, else 2.
func termMatches(q, d string, auto bool) bool {
	if q == d {
		return true
	}
	if !auto {
		return false
	}
	n := len([]rune(q))
	maxEdits := 2
	switch {
	case n <= 2:
		return false
	case n <= 5:
		maxEdits = 1
	}
	return levenshtein(q, d, maxEdits) <= maxEdits
}

// levenshtein returns the edit distance between a and b, or max+1 once it
// is known to exceed max.
func levenshtein(a, b string, maxDist int) int {
	ra, rb := []rune(a), []rune(b)
	if d := len(ra) - len(rb); d > maxDist || -d > maxDist {
		return maxDist + 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > maxDist {
			return maxDist + 1
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
