package db

import "strings"

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition with one shard and one replica.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:     name,
			Shards:   1,
			Replicas: 1,
		},
	}
}

// Shards sets the primary shard count.
func (b *IndexBuilder) Shards(n int) *IndexBuilder {
	b.def.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *IndexBuilder) Replicas(n int) *IndexBuilder {
	b.def.Replicas = n
	return b
}

// Keyword adds a keyword field.
func (b *IndexBuilder) Keyword(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Type: FieldKeyword})
	return b
}

// Text adds an analyzed text field. An empty analyzer uses the backend default.
func (b *IndexBuilder) Text(name, analyzer string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Type: FieldText, Analyzer: analyzer})
	return b
}

// TextWithKeyword adds a text field with an exact-match "<name>.keyword" sub-field.
func (b *IndexBuilder) TextWithKeyword(name, analyzer string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{
		Name:            name,
		Type:            FieldText,
		Analyzer:        analyzer,
		KeywordSubfield: true,
	})
	return b
}

// Date adds a date field.
func (b *IndexBuilder) Date(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Type: FieldDate})
	return b
}

// GeoPoint adds a geo_point field.
func (b *IndexBuilder) GeoPoint(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Type: FieldGeoPoint})
	return b
}

// DenseVector adds an indexed dense_vector field.
func (b *IndexBuilder) DenseVector(name string, dim int, sim Similarity) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{
		Name:       name,
		Type:       FieldDenseVector,
		VectorDim:  dim,
		Similarity: sim,
	})
	return b
}

// DynamicObject adds an object field whose sub-fields are mapped on first use.
func (b *IndexBuilder) DynamicObject(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Type: FieldObject, Dynamic: true})
	return b
}

// KeywordObject adds a dynamic object whose string sub-fields are mapped as
// keywords, so term filters on "<name>.<key>" match exact values.
func (b *IndexBuilder) KeywordObject(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{
		Name:           name,
		Type:           FieldObject,
		Dynamic:        true,
		DynamicStrings: FieldKeyword,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a compact debug representation of the mapping.
func (idx *IndexDefinition) String() string {
	parts := []string{"INDEX", idx.Name}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name+":"+string(f.Type))
		if f.KeywordSubfield {
			parts = append(parts, f.Name+".keyword:"+string(FieldKeyword))
		}
	}
	return strings.Join(parts, " ")
}
