package db

import "math"

// Condition is a single pre-filter predicate. Exactly one of Tag or Range is set.
type Condition struct {
	Field string
	Tag   string
	Range *Range
}

// Range is an inclusive numeric interval unless MinExclusive is set.
type Range struct {
	Min          float64
	Max          float64
	MinExclusive bool
}

// TagEquals builds an exact TAG match condition.
func TagEquals(field, value string) Condition {
	return Condition{Field: field, Tag: value}
}

// AtLeast builds an open-ended numeric lower bound.
func AtLeast(field string, lower float64, exclusive bool) Condition {
	return Condition{Field: field, Range: &Range{Min: lower, Max: math.Inf(1), MinExclusive: exclusive}}
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      []Condition
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName string
	// Fields restricts matching to these TEXT fields; empty means all of them.
	Fields       []string
	Query        string
	Filters      []Condition
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for a filtered, sorted listing without scoring.
type ListQuery struct {
	IndexName    string
	Filters      []Condition
	SortBy       string
	Ascending    bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
