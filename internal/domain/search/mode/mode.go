package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid surfaces documents matched by either semantic similarity or keywords.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// NeedsEmbedding reports whether the query text must be vectorized.
func (m Mode) NeedsEmbedding() bool {
	return m == Hybrid || m == Semantic
}

// NeedsKeywords reports whether the query text is matched lexically.
func (m Mode) NeedsKeywords() bool {
	return m == Hybrid || m == Keyword
}
