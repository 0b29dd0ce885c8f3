package elastic

import "github.com/kailas-cloud/memento/internal/db"

// EncodeIndex converts an index definition into an indices.create body.
func EncodeIndex(def *db.IndexDefinition) map[string]any {
	props := make(map[string]any, len(def.Fields))
	var templates []any
	for i := range def.Fields {
		f := &def.Fields[i]
		props[f.Name] = encodeField(f)
		if f.DynamicStrings != "" {
			templates = append(templates, dynamicStrings(f))
		}
	}
	mappings := map[string]any{"properties": props}
	if len(templates) > 0 {
		mappings["dynamic_templates"] = templates
	}
	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"number_of_shards":   def.Shards,
				"number_of_replicas": def.Replicas,
			},
		},
		"mappings": mappings,
	}
}

func encodeField(f *db.Field) map[string]any {
	m := map[string]any{"type": string(f.Type)}
	switch f.Type {
	case db.FieldText:
		if f.Analyzer != "" {
			m["analyzer"] = f.Analyzer
		}
		if f.KeywordSubfield {
			m["fields"] = map[string]any{"keyword": map[string]any{"type": string(db.FieldKeyword)}}
		}
	case db.FieldDenseVector:
		m["dims"] = f.VectorDim
		m["index"] = true
		if f.Similarity != "" {
			m["similarity"] = string(f.Similarity)
		}
	case db.FieldObject:
		m["dynamic"] = f.Dynamic
	}
	return m
}

// dynamicStrings maps every string under "<name>." to f.DynamicStrings.
func dynamicStrings(f *db.Field) map[string]any {
	return map[string]any{
		f.Name + "_strings": map[string]any{
			"path_match":         f.Name + ".*",
			"match_mapping_type": "string",
			"mapping":            map[string]any{"type": string(f.DynamicStrings)},
		},
	}
}
