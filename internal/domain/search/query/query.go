package query

import (
	"fmt"
	"strings"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	MaxLimit       = 100
)

// Query is a validated job search request.
type Query struct {
	rawText     string
	searchMode  mode.Mode
	filters     filter.Set
	requesterID string
	threshold   float64
	limit       int
}

// New validates search parameters. All failures wrap domain.ErrInvalidInput.
// A limit of zero is legal and yields an empty result without touching the store;
// limits above MaxLimit are clamped.
func New(
	rawText string,
	m mode.Mode,
	filters filter.Set,
	requesterID string,
	threshold float64,
	limit int,
) (Query, error) {
	if !m.IsValid() {
		return Query{}, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidInput, m)
	}
	if m.NeedsEmbedding() && strings.TrimSpace(rawText) == "" {
		return Query{}, fmt.Errorf("%w: query text is required for %s search", domain.ErrInvalidInput, m)
	}
	if len(rawText) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidInput, MaxQueryLength)
	}
	if threshold < 0 || threshold > 1 {
		return Query{}, fmt.Errorf("%w: similarity threshold must be between 0 and 1", domain.ErrInvalidInput)
	}
	if limit < 0 {
		return Query{}, fmt.Errorf("%w: result limit must not be negative", domain.ErrInvalidInput)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Query{
		rawText:     rawText,
		searchMode:  m,
		filters:     filters,
		requesterID: requesterID,
		threshold:   threshold,
		limit:       limit,
	}, nil
}

// RawText returns the free-text query.
func (q *Query) RawText() string { return q.rawText }

// Mode returns the search strategy.
func (q *Query) Mode() mode.Mode { return q.searchMode }

// Filters returns the facet constraints.
func (q *Query) Filters() filter.Set { return q.filters }

// RequesterID returns the optional identifier of the user issuing the search.
func (q *Query) RequesterID() string { return q.requesterID }

// Threshold returns the minimum semantic similarity in [0,1].
func (q *Query) Threshold() float64 { return q.threshold }

// Limit returns the maximum number of results.
func (q *Query) Limit() int { return q.limit }

// Defaults supplies per-mode values for parameters the caller left unset.
type Defaults struct {
	SemanticThreshold float64
	HybridThreshold   float64
	Limit             int
}

// Threshold resolves the similarity threshold for m.
func (d Defaults) Threshold(m mode.Mode, override *float64) float64 {
	if override != nil {
		return *override
	}
	if m == mode.Hybrid {
		return d.HybridThreshold
	}
	return d.SemanticThreshold
}

// ResultLimit resolves the result limit.
func (d Defaults) ResultLimit(override *int) int {
	if override != nil {
		return *override
	}
	return d.Limit
}
