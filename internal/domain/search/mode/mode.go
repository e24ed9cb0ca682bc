package mode

import (
	"fmt"
	"strings"
)

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Keyword queries the store by filters only, no embedding involved.
	Keyword Mode = "keyword"
	// Semantic ranks by embedding similarity to the query text.
	Semantic Mode = "semantic"
	// Hybrid blends lexical relevance and embedding similarity.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Keyword || m == Semantic || m == Hybrid
}

// NeedsEmbedding reports whether the primary path of this mode vectorizes the query.
func (m Mode) NeedsEmbedding() bool {
	return m == Semantic || m == Hybrid
}

// Parse normalizes s into a Mode. An empty string selects Hybrid.
func Parse(s string) (Mode, error) {
	if s == "" {
		return Hybrid, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown search mode %q", s)
	}
	return m, nil
}
