package db

import (
	"errors"
	"strconv"
)

// FieldType enumerates supported mapping field types.
type FieldType string

const (
	// FieldKeyword is an exact-match string field.
	FieldKeyword FieldType = "keyword"
	// FieldText is an analyzed full-text field.
	FieldText FieldType = "text"
	// FieldDate is a date field.
	FieldDate FieldType = "date"
	// FieldGeoPoint is a lat/lon field.
	FieldGeoPoint FieldType = "geo_point"
	// FieldDenseVector is a fixed-dimension float vector field.
	FieldDenseVector FieldType = "dense_vector"
	// FieldObject is a nested object with dynamic sub-fields.
	FieldObject FieldType = "object"
)

// Similarity is the vector similarity used to index dense vectors.
type Similarity string

// SimilarityCosine is cosine similarity.
const SimilarityCosine Similarity = "cosine"

// Field describes a single field in an index mapping.
type Field struct {
	Name string
	Type FieldType

	// text options
	Analyzer        string
	KeywordSubfield bool // adds a "<name>.keyword" exact-match sub-field

	// dense_vector options
	VectorDim  int
	Similarity Similarity

	// object options
	Dynamic        bool
	DynamicStrings FieldType // mapping for string sub-fields; empty leaves it to the backend
}

// IndexDefinition is a complete index mapping plus settings.
type IndexDefinition struct {
	Name     string
	Shards   int
	Replicas int
	Fields   []Field
}

// VectorDims returns the declared dimension of every dense_vector field.
func (idx *IndexDefinition) VectorDims() map[string]int {
	dims := make(map[string]int)
	for i := range idx.Fields {
		if idx.Fields[i].Type == FieldDenseVector {
			dims[idx.Fields[i].Name] = idx.Fields[i].VectorDim
		}
	}
	return dims
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIndexName(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	if idx.Shards < 0 || idx.Replicas < 0 {
		return errors.New("shards and replicas must not be negative")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == FieldDenseVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive dims")
		}
		if f.DynamicStrings != "" {
			if f.Type != FieldObject || !f.Dynamic {
				return errors.New("dynamic string mapping requires a dynamic object: " + f.Name)
			}
			if f.DynamicStrings != FieldKeyword && f.DynamicStrings != FieldText {
				return errors.New("dynamic strings must map to keyword or text: " + f.Name)
			}
		}
	}

	return nil
}

// IsValidIndexName returns true if s matches [a-z0-9_-]+ and does not start with '_' or '-'.
func IsValidIndexName(s string) bool {
	if s == "" || s[0] == '_' || s[0] == '-' {
		return false
	}
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '-'
		if !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
