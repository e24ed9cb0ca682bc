package chi

import (
	"context"

	"github.com/smartapply/jobsearch/internal/domain/backfill"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/preference"
	"github.com/smartapply/jobsearch/internal/domain/search/query"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
	healthuc "github.com/smartapply/jobsearch/internal/usecase/health"
)

// Searcher runs job searches and personalized recommendations.
type Searcher interface {
	Search(ctx context.Context, q *query.Query) ([]result.Result, error)
	Recommend(ctx context.Context, userID string, limit int) ([]result.Result, error)
}

// SimilarFinder finds jobs similar to an existing one.
type SimilarFinder interface {
	FindSimilar(ctx context.Context, jobID string, threshold float64, limit int) ([]job.Similar, error)
}

// PreferenceManager owns user preference embeddings and profile attributes.
type PreferenceManager interface {
	Update(ctx context.Context, userID, text string) error
	EnsureInitialized(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (preference.Profile, error)
	SaveAttributes(ctx context.Context, userID string, attrs preference.Attributes) error
}

// JobStore ingests job listings.
type JobStore interface {
	SaveJob(ctx context.Context, j *job.Job) (bool, error)
}

// BackfillRunner runs one embedding backfill page.
type BackfillRunner interface {
	RunBackfill(ctx context.Context, cursor int64) (*backfill.Progress, error)
}

// HealthChecker reports on the semantic search setup.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token consumption.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
