package elastic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/query"
)

// dateFormat is the format hint sent with every range bound.
const dateFormat = "strict_date_optional_time"

var scriptFieldRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

// EncodeSearch converts a query tree into an Elasticsearch _search body.
func EncodeSearch(s *query.Search) (map[string]any, error) {
	q := s.Query
	if q == nil {
		q = query.MatchAll{}
	}
	encoded, err := encodeClause(q)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"query": encoded,
		"size":  s.Size,
	}
	if len(s.Sort) > 0 {
		sorts := make([]any, 0, len(s.Sort))
		for _, srt := range s.Sort {
			sorts = append(sorts, map[string]any{
				srt.Field: map[string]any{"order": string(srt.Order)},
			})
		}
		body["sort"] = sorts
	}
	if len(s.SourceExcludes) > 0 {
		body["_source"] = map[string]any{"excludes": s.SourceExcludes}
	}
	return body, nil
}

func encodeClause(c query.Clause) (map[string]any, error) {
	switch v := c.(type) {
	case query.MatchAll:
		return map[string]any{"match_all": map[string]any{}}, nil
	case query.MultiMatch:
		return encodeMultiMatch(v), nil
	case query.ScriptScore:
		return encodeScriptScore(v)
	case query.Bool:
		return encodeBool(v)
	case query.Term:
		return map[string]any{"term": map[string]any{v.Field: v.Value}}, nil
	case query.Terms:
		return map[string]any{"terms": map[string]any{v.Field: v.Values}}, nil
	case query.Range:
		return encodeRange(v), nil
	case query.GeoDistance:
		return map[string]any{"geo_distance": map[string]any{
			"distance": strconv.FormatFloat(v.RadiusMeters, 'f', -1, 64) + "m",
			v.Field:    map[string]any{"lat": v.Center.Lat, "lon": v.Center.Lon},
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", db.ErrUnsupportedQuery, c)
	}
}

func encodeMultiMatch(m query.MultiMatch) map[string]any {
	fields := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Boost == 0 || f.Boost == 1 {
			fields = append(fields, f.Name)
			continue
		}
		fields = append(fields, f.Name+"^"+strconv.FormatFloat(f.Boost, 'f', -1, 64))
	}
	body := map[string]any{
		"query":  m.Text,
		"fields": fields,
		"type":   "best_fields",
	}
	if m.Fuzziness != "" {
		body["fuzziness"] = m.Fuzziness
	}
	if m.Boost != 0 {
		body["boost"] = m.Boost
	}
	return map[string]any{"multi_match": body}
}

func encodeScriptScore(s query.ScriptScore) (map[string]any, error) {
	inner := s.Query
	if inner == nil {
		inner = query.MatchAll{}
	}
	encoded, err := encodeClause(inner)
	if err != nil {
		return nil, err
	}
	source, err := PainlessSource(s.Terms)
	if err != nil {
		return nil, err
	}
	return map[string]any{"script_score": map[string]any{
		"query":     encoded,
		"min_score": s.MinScore,
		"script": map[string]any{
			"source": source,
			"params": map[string]any{"query_vector": s.Vector},
		},
	}}, nil
}

// PainlessSource renders the weighted shifted-cosine formula as a painless script.
// Each term contributes weight * (cosineSimilarity + 1); optional terms
// contribute 0 for documents without the vector field.
func PainlessSource(terms []query.VectorTerm) (string, error) {
	if len(terms) == 0 {
		return "", fmt.Errorf("%w: script_score without vector terms", db.ErrUnsupportedQuery)
	}
	var sb strings.Builder
	sum := make([]string, 0, len(terms))
	for i, t := range terms {
		if !scriptFieldRegex.MatchString(t.Field) {
			return "", fmt.Errorf("%w: invalid vector field %q", db.ErrUnsupportedQuery, t.Field)
		}
		sim := fmt.Sprintf("cosineSimilarity(params.query_vector, '%s') + 1.0", t.Field)
		if t.Optional {
			fmt.Fprintf(&sb, "double s%d = !doc['%s'].isEmpty() ? %s : 0;\n", i, t.Field, sim)
		} else {
			fmt.Fprintf(&sb, "double s%d = %s;\n", i, sim)
		}
		sum = append(sum, fmt.Sprintf("s%d * %s", i, strconv.FormatFloat(t.Weight, 'f', -1, 64)))
	}
	fmt.Fprintf(&sb, "return %s;", strings.Join(sum, " + "))
	return sb.String(), nil
}

func encodeBool(b query.Bool) (map[string]any, error) {
	body := map[string]any{}
	groups := []struct {
		key     string
		clauses []query.Clause
	}{
		{"must", b.Must},
		{"should", b.Should},
		{"filter", b.Filter},
	}
	for _, g := range groups {
		if len(g.clauses) == 0 {
			continue
		}
		encoded := make([]any, 0, len(g.clauses))
		for _, c := range g.clauses {
			e, err := encodeClause(c)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, e)
		}
		body[g.key] = encoded
	}
	if b.MinimumShouldMatch > 0 {
		body["minimum_should_match"] = b.MinimumShouldMatch
	}
	return map[string]any{"bool": body}, nil
}

func encodeRange(r query.Range) map[string]any {
	bounds := map[string]any{"format": dateFormat}
	put := func(key string, t *time.Time) {
		if t != nil {
			bounds[key] = t.Format(time.RFC3339Nano)
		}
	}
	put("gt", r.GT)
	put("gte", r.GTE)
	put("lt", r.LT)
	put("lte", r.LTE)
	return map[string]any{"range": map[string]any{r.Field: bounds}}
}
