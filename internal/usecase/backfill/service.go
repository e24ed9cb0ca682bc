package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/backfill"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/metrics"
)

// Defaults.
const (
	DefaultPageSize = 10
	DefaultDelay    = 25 * time.Second
)

// Repository is the remote store contract for backfill.
type Repository interface {
	JobsMissingEmbedding(ctx context.Context, pageSize int, afterSeq int64) ([]job.Candidate, error)
	WriteJobEmbedding(ctx context.Context, jobID string, emb domain.Embedding) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Coordinator embeds one page of active jobs that lack an embedding.
// Candidates are handled one at a time in store order; after a candidate finishes
// (including its embedding retries) the next one starts no sooner than delay later.
// One run per Coordinator at a time.
type Coordinator struct {
	repo     Repository
	embed    Embedder
	pageSize int
	delay    time.Duration
	logger   *zap.Logger
	newID    func() string
	running  atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPageSize sets how many candidates one run processes.
func WithPageSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDelay sets the pause between finishing one candidate and starting the next.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// New creates a backfill coordinator.
func New(repo Repository, embed Embedder, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		repo:     repo,
		embed:    embed,
		pageSize: DefaultPageSize,
		delay:    DefaultDelay,
		logger:   logger,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RunBackfill processes the page of candidates after cursor.
// Per-job failures are recorded in the progress; run-level failures (candidate query,
// cancellation) land in Progress.Err. The only returned error is domain.ErrBackfillRunning.
func (c *Coordinator) RunBackfill(ctx context.Context, cursor int64) (*backfill.Progress, error) {
	if !c.running.CompareAndSwap(false, true) {
		metrics.BackfillRunsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrBackfillRunning
	}
	defer c.running.Store(false)

	p := backfill.New(c.newID(), cursor)
	log := c.logger.With(zap.String("run_id", p.RunID), zap.Int64("cursor", cursor))

	candidates, err := c.repo.JobsMissingEmbedding(ctx, c.pageSize, cursor)
	if err != nil {
		p.Err = fmt.Errorf("query candidates: %w", err)
		log.Error("Backfill candidate query failed", zap.Error(err))
		metrics.BackfillRunsTotal.WithLabelValues("failed").Inc()
		return p, nil
	}
	p.TotalCandidates = len(candidates)
	p.Exhausted = len(candidates) < c.pageSize

	log.Info("Backfill started", zap.Int("candidates", len(candidates)))

	var pacer *rate.Limiter
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			p.Err = err
			break
		}
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				p.Err = waitErr(ctx, err)
				break
			}
		}
		err := c.process(ctx, cand)
		pacer = c.pacer(time.Now())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.Err = ctxErr
				break
			}
			p.Failed(cand.ID, cand.Seq, err)
			metrics.BackfillJobsTotal.WithLabelValues("failed").Inc()
			log.Warn("Backfill job failed", zap.String("job_id", cand.ID), zap.Error(err))
			continue
		}
		p.Succeeded(cand.Seq)
		metrics.BackfillJobsTotal.WithLabelValues("embedded").Inc()
	}

	status := "completed"
	if p.Err != nil {
		status = "canceled"
	}
	metrics.BackfillRunsTotal.WithLabelValues(status).Inc()

	log.Info("Backfill finished",
		zap.String("status", status),
		zap.Int("attempted", p.Attempted()),
		zap.Int("processed", p.Processed),
		zap.Int("failed", len(p.Failures)),
		zap.Int64("next_cursor", p.NextCursor),
		zap.Bool("exhausted", p.Exhausted),
	)
	return p, nil
}

func (c *Coordinator) process(ctx context.Context, cand job.Candidate) error {
	res, err := c.embed.Embed(ctx, cand.Text())
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := c.repo.WriteJobEmbedding(ctx, cand.ID, res.Embedding); err != nil {
		return fmt.Errorf("write embedding: %w", err)
	}
	return nil
}

// pacer starts the inter-request interval at now, the moment a candidate finished.
// Time spent in embedding retries therefore never shortens the gap.
func (c *Coordinator) pacer(now time.Time) *rate.Limiter {
	if c.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	l := rate.NewLimiter(rate.Every(c.delay), 1)
	l.AllowN(now, 1)
	return l
}

// waitErr prefers the context error; rate.Limiter reports a deadline shorter than
// the next slot with its own error before the context expires.
func waitErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return errors.Join(context.DeadlineExceeded, err)
	}
	return err
}
