package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
)

// SaveJob stores a job and queues it for embedding. Every write takes a fresh
// sequence number so a backfill cursor already past the old one still sees it.
// Returns true when the job did not exist before.
func (r *Repo) SaveJob(ctx context.Context, j *job.Job) (bool, error) {
	if err := j.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	key := r.jobKey(j.ID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check job %s: %w", j.ID, err)
	}
	seq, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return false, fmt.Errorf("allocate seq for job %s: %w", j.ID, err)
	}
	if exists {
		if err := r.store.HDel(ctx, key, fieldEmbedding, fieldEmbeddedAt); err != nil {
			return false, fmt.Errorf("drop stale embedding %s: %w", j.ID, err)
		}
	}
	if err := r.store.HSet(ctx, key, jobFields(j, seq)); err != nil {
		return false, fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return !exists, nil
}

// JobsMissingEmbedding returns up to pageSize active jobs without an embedding
// whose sequence number is greater than afterSeq, in ascending sequence order.
func (r *Repo) JobsMissingEmbedding(ctx context.Context, pageSize int, afterSeq int64) ([]job.Candidate, error) {
	if pageSize <= 0 {
		return nil, nil
	}
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: r.IndexName(),
		Filters: []db.Condition{
			db.TagEquals(fieldActive, tagTrue),
			db.TagEquals(fieldHasEmbedding, tagFalse),
			db.AtLeast(fieldSeq, float64(afterSeq), true),
		},
		SortBy:    fieldSeq,
		Ascending: true,
		Limit:     pageSize,
		ReturnFields: []string{
			fieldID, fieldSeq, fieldTitle, fieldDescription, fieldRequiredSkills, fieldNiceSkills,
		},
	})
	if err != nil {
		return nil, mapErr("jobs missing embedding", err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]job.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		c, err := candidateFromFields(strings.TrimPrefix(e.Key, r.jobPrefix()), e.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// WriteJobEmbedding stores the vector and flips has_embedding in one HSET.
func (r *Repo) WriteJobEmbedding(ctx context.Context, jobID string, emb domain.Embedding) error {
	if err := r.checkDims(emb); err != nil {
		return err
	}
	key := r.jobKey(jobID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check job %s: %w", jobID, err)
	}
	if !exists {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	err = r.store.HSet(ctx, key, map[string]string{
		fieldEmbedding:    db.EncodeVector(emb),
		fieldHasEmbedding: tagTrue,
		fieldEmbeddedAt:   unixString(r.now()),
	})
	if err != nil {
		return fmt.Errorf("write embedding %s: %w", jobID, err)
	}
	return nil
}
