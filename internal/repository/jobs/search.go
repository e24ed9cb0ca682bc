package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
)

// hybridOverfetch widens both hybrid candidate lists before fusion.
const hybridOverfetch = 3

// SemanticSearch ranks active jobs by cosine similarity to vec, dropping hits below threshold.
func (r *Repo) SemanticSearch(
	ctx context.Context, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
) ([]result.Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	hits, err := r.knn(ctx, vec, activeFilter(filters), limit)
	if err != nil {
		return nil, mapErr("semantic search", err)
	}

	out := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		if h.score < threshold {
			continue
		}
		out = append(out, result.New(h.summary).
			WithSemanticSimilarity(h.score).
			WithBreakdown(map[string]float64{result.BreakdownSemantic: percent(h.score)}))
	}
	return out, nil
}

// HybridSearch fuses vector and BM25 rankings with Reciprocal Rank Fusion.
// The threshold applies to the vector list only; lexical hits always take part.
func (r *Repo) HybridSearch(
	ctx context.Context, text string, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
) ([]result.Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	conds := activeFilter(filters)
	k := limit * hybridOverfetch

	vectorHits, err := r.knn(ctx, vec, conds, k)
	if err != nil {
		return nil, mapErr("hybrid search knn", err)
	}
	kept := vectorHits[:0]
	for _, h := range vectorHits {
		if h.score >= threshold {
			kept = append(kept, h)
		}
	}

	var lexicalHits []hit
	if strings.TrimSpace(text) != "" {
		sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
			IndexName:    r.IndexName(),
			Fields:       textFields,
			Query:        text,
			Filters:      conds,
			TopK:         k,
			ReturnFields: summaryFields,
		})
		if err != nil {
			return nil, mapErr("hybrid search bm25", err)
		}
		lexicalHits = r.hits(sr)
	}

	return fuseRRF(kept, lexicalHits, limit), nil
}

// KeywordFallbackSearch lists active jobs matching filters, newest first. It never embeds.
func (r *Repo) KeywordFallbackSearch(ctx context.Context, filters filter.Set, limit int) ([]result.Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.IndexName(),
		Filters:      activeFilter(filters),
		SortBy:       fieldPostedAt,
		Limit:        limit,
		ReturnFields: summaryFields,
	})
	if err != nil {
		return nil, mapErr("keyword fallback search", err)
	}

	hits := r.hits(sr)
	out := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, result.New(h.summary))
	}
	return out, nil
}

// NearestNeighbors returns active jobs similar to jobID, excluding jobID itself.
func (r *Repo) NearestNeighbors(ctx context.Context, jobID string, threshold float64, limit int) ([]job.Similar, error) {
	fields, err := r.store.HGetAll(ctx, r.jobKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	blob := fields[fieldEmbedding]
	if blob == "" {
		return nil, fmt.Errorf("job %s has no embedding: %w", jobID, domain.ErrNotFound)
	}
	vec, err := db.DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("decode embedding for job %s: %w", jobID, err)
	}
	if limit <= 0 {
		return nil, nil
	}

	hits, err := r.knn(ctx, vec, activeFilter(filter.Set{}), limit+1)
	if err != nil {
		return nil, mapErr("nearest neighbors", err)
	}

	out := make([]job.Similar, 0, limit)
	for _, h := range hits {
		if h.summary.ID == jobID || h.score < threshold {
			continue
		}
		out = append(out, job.Similar{Summary: h.summary, Similarity: h.score})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// PersonalizedRecommendations ranks active jobs against the user's preference embedding.
// A user without one yields domain.ErrPreferenceNotFound.
func (r *Repo) PersonalizedRecommendations(ctx context.Context, userID string, limit int) ([]result.Result, error) {
	fields, err := r.store.HGetAll(ctx, r.userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	profile, err := profileFromFields(userID, fields)
	if err != nil {
		return nil, err
	}
	if !profile.HasEmbedding() {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrPreferenceNotFound)
	}
	if limit <= 0 {
		return nil, nil
	}

	hits, err := r.knn(ctx, []float32(profile.Embedding), activeFilter(filter.Set{}), limit)
	if err != nil {
		return nil, mapErr("personalized recommendations", err)
	}

	out := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, result.New(h.summary).
			WithSemanticSimilarity(h.score).
			WithBreakdown(map[string]float64{result.BreakdownSemantic: percent(h.score)}))
	}
	return out, nil
}

// hit is one ranked job from a single retriever.
type hit struct {
	summary job.Summary
	score   float64
}

func (r *Repo) knn(ctx context.Context, vec []float32, conds []db.Condition, k int) ([]hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.IndexName(),
		VectorField:  fieldEmbedding,
		Filters:      conds,
		Vector:       vec,
		K:            k,
		ReturnFields: summaryFields,
	})
	if err != nil {
		return nil, err
	}
	return r.hits(sr), nil
}

func (r *Repo) hits(sr *db.SearchResult) []hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	prefix := r.jobPrefix()
	out := make([]hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := strings.TrimPrefix(e.Key, prefix)
		out = append(out, hit{summary: summaryFromFields(id, e.Fields), score: e.Score})
	}
	return out
}
