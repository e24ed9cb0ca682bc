package result

import "github.com/smartapply/jobsearch/internal/domain/job"

// Match breakdown keys.
const (
	BreakdownSemantic = "semantic"
	BreakdownKeyword  = "keyword"
)

// Result is a single job search hit.
type Result struct {
	job                job.Summary
	semanticSimilarity *float64
	combinedScore      *float64
	matchBreakdown     map[string]float64
}

// New creates a result with no scores (keyword/fallback hits).
func New(summary job.Summary) Result {
	return Result{job: summary}
}

// WithSemanticSimilarity returns a copy carrying the vector similarity.
func (r Result) WithSemanticSimilarity(s float64) Result {
	r.semanticSimilarity = &s
	return r
}

// WithCombinedScore returns a copy carrying the blended score.
func (r Result) WithCombinedScore(s float64) Result {
	r.combinedScore = &s
	return r
}

// WithBreakdown returns a copy carrying per-signal percentages.
func (r Result) WithBreakdown(b map[string]float64) Result {
	r.matchBreakdown = b
	return r
}

// JobID returns the job identifier.
func (r *Result) JobID() string { return r.job.ID }

// Job returns the scalar job fields.
func (r *Result) Job() job.Summary { return r.job }

// SemanticSimilarity returns the vector similarity, if computed.
func (r *Result) SemanticSimilarity() *float64 { return r.semanticSimilarity }

// CombinedScore returns the blended lexical+vector score, if computed.
func (r *Result) CombinedScore() *float64 { return r.combinedScore }

// MatchBreakdown returns sub-score percentages keyed by signal name.
func (r *Result) MatchBreakdown() map[string]float64 { return r.matchBreakdown }

// IsScored reports whether at least one relevance score is present.
func (r *Result) IsScored() bool {
	return r.semanticSimilarity != nil || r.combinedScore != nil
}

// Score returns the score the store ranked by: combined when present, else similarity, else 0.
func (r *Result) Score() float64 {
	if r.combinedScore != nil {
		return *r.combinedScore
	}
	if r.semanticSimilarity != nil {
		return *r.semanticSimilarity
	}
	return 0
}
