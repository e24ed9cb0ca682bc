package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain"
)

// DefaultKeyPrefix namespaces every key the repository writes.
const DefaultKeyPrefix = "jobsearch:"

// store is the consumer interface for the job index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo implements the remote-store procedures over Redis hashes and one FT index.
type Repo struct {
	store  store
	prefix string
	dims   int
	hnswM  int
	hnswEF int
	now    func() time.Time
}

// Option customizes a Repo.
type Option func(*Repo)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *Repo) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithHNSW overrides the vector graph parameters used when the index is created.
func WithHNSW(m, efConstruction int) Option {
	return func(r *Repo) {
		if m > 0 {
			r.hnswM = m
		}
		if efConstruction > 0 {
			r.hnswEF = efConstruction
		}
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Repo) { r.now = now }
}

// New creates a jobs repository for vectors of the given dimension.
func New(s store, dims int, opts ...Option) *Repo {
	r := &Repo{
		store:  s,
		prefix: DefaultKeyPrefix,
		dims:   dims,
		hnswM:  defaultHNSWM,
		hnswEF: defaultHNSWEFConstruct,
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IndexName returns the FT index backing all job queries.
func (r *Repo) IndexName() string { return r.prefix + "jobs:idx" }

// EnsureIndex creates the job index when it is missing.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := r.indexDefinition()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// IndexReady reports whether the vector index exists.
func (r *Repo) IndexReady(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	return ok, nil
}

func (r *Repo) jobKey(id string) string  { return r.prefix + "job:" + id }
func (r *Repo) userKey(id string) string { return r.prefix + "user:" + id }
func (r *Repo) seqKey() string           { return r.prefix + "seq:jobs" }

func (r *Repo) jobPrefix() string { return r.prefix + "job:" }

// mapErr translates storage sentinels into the domain taxonomy.
func mapErr(op string, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repo) checkDims(e domain.Embedding) error {
	if len(e) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	if r.dims > 0 && len(e) != r.dims {
		return fmt.Errorf("%w: embedding has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(e), r.dims)
	}
	return nil
}
