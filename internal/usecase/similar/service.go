package similar

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
)

// Defaults.
const (
	DefaultThreshold = 0.8
	DefaultLimit     = 10
	MaxLimit         = 50
)

// Repository is the nearest-neighbor contract of the remote store.
type Repository interface {
	NearestNeighbors(ctx context.Context, jobID string, threshold float64, limit int) ([]job.Similar, error)
}

// Finder returns jobs similar to an existing one. A single store call, never retried:
// a job without an embedding is a data problem and surfaces as domain.ErrNotFound.
type Finder struct {
	repo     Repository
	maxLimit int
}

// New creates a finder. maxLimit <= 0 selects MaxLimit.
func New(repo Repository, maxLimit int) *Finder {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	return &Finder{repo: repo, maxLimit: maxLimit}
}

// FindSimilar returns up to limit jobs whose similarity to jobID is at least threshold.
// limit is clamped to [1, max].
func (f *Finder) FindSimilar(ctx context.Context, jobID string, threshold float64, limit int) ([]job.Similar, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrInvalidInput)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold must be between 0 and 1", domain.ErrInvalidInput)
	}
	limit = min(max(limit, 1), f.maxLimit)

	out, err := f.repo.NearestNeighbors(ctx, jobID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similar to %s: %w", jobID, err)
	}
	if out == nil {
		out = []job.Similar{}
	}
	return out, nil
}
