package health

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/smartapply/jobsearch/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search works but only through the keyword fallback.
	Degraded Status = "degraded"
	// Unhealthy indicates the store or its vector index is unusable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckSkipped indicates a check that could not run because a dependency failed.
	CheckSkipped CheckResult = "skipped"
)

// Component names.
const (
	ComponentDatabase    = "database"
	ComponentVectorIndex = "vector_index"
	ComponentEmbedding   = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Err explains an Unhealthy status. A missing index wraps domain.ErrRemoteUnavailable.
	Err error
}

// Service verifies the semantic search setup: store, vector index, embedding provider.
type Service struct {
	db        DBPinger
	index     IndexChecker
	embedding EmbeddingChecker
}

// New creates a Service. index and embedding can be nil.
func New(db DBPinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	return &Service{db: db, index: index, embedding: embedding}
}

// Check runs health checks against all components. The store and the embedding
// provider are checked concurrently; the index check is skipped when the store is down.
// A store failure makes the report Unhealthy regardless of the provider, so it
// cancels the provider check, which is then reported as skipped.
func (s *Service) Check(ctx context.Context) Report {
	var (
		store  Report
		embErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store = s.checkStore(gctx)
		return store.Err
	})
	if s.embedding != nil {
		g.Go(func() error {
			// A provider failure only degrades; it must not cancel the store check.
			embErr = s.embedding.HealthCheck(gctx)
			return nil
		})
	}
	storeErr := g.Wait()

	r := store
	if s.embedding == nil {
		return r
	}
	switch {
	case embErr == nil:
		r.Checks[ComponentEmbedding] = CheckOK
	case storeErr != nil && ctx.Err() == nil && errors.Is(embErr, context.Canceled):
		r.Checks[ComponentEmbedding] = CheckSkipped
	default:
		r.Checks[ComponentEmbedding] = CheckError
		if r.Status == Healthy {
			r.Status = Degraded
		}
	}
	return r
}

func (s *Service) checkStore(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, 3)}

	dbErr := s.db.Ping(ctx)
	if dbErr != nil {
		r.Checks[ComponentDatabase] = CheckError
		r.Status = Unhealthy
		r.Err = fmt.Errorf("database: %w", dbErr)
	} else {
		r.Checks[ComponentDatabase] = CheckOK
	}

	if s.index == nil {
		return r
	}
	if dbErr != nil {
		r.Checks[ComponentVectorIndex] = CheckSkipped
		return r
	}

	ok, err := s.index.IndexReady(ctx)
	switch {
	case err != nil:
		r.Checks[ComponentVectorIndex] = CheckError
		r.Status = Unhealthy
		r.Err = fmt.Errorf("vector index: %w", err)
	case !ok:
		r.Checks[ComponentVectorIndex] = CheckError
		r.Status = Unhealthy
		r.Err = fmt.Errorf("vector index missing: %w", domain.ErrRemoteUnavailable)
	default:
		r.Checks[ComponentVectorIndex] = CheckOK
	}
	return r
}
