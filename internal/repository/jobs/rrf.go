package jobs

import (
	"cmp"
	"math"
	"slices"

	"github.com/smartapply/jobsearch/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const rrfK = 60

// maxFused is the score of a job ranked first by both retrievers.
const maxFused = 2.0 / float64(rrfK+1)

// fuseRRF merges the vector and lexical rankings.
// score(d) = sum of 1/(k + rank_i(d)) over the rankings containing d.
// CombinedScore is that sum scaled by maxFused into [0, 1].
func fuseRRF(vector, lexical []hit, limit int) []result.Result {
	type fused struct {
		h          hit
		rrf        float64
		similarity *float64
		keyword    *float64
	}

	merged := make(map[string]*fused, len(vector)+len(lexical))
	order := make([]string, 0, len(vector)+len(lexical))

	for rank, h := range vector {
		sim := h.score
		merged[h.summary.ID] = &fused{h: h, rrf: 1.0 / float64(rrfK+rank+1), similarity: &sim}
		order = append(order, h.summary.ID)
	}

	var bestLexical float64
	for _, h := range lexical {
		bestLexical = max(bestLexical, h.score)
	}

	for rank, h := range lexical {
		kw := 0.0
		if bestLexical > 0 {
			kw = h.score / bestLexical
		}
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[h.summary.ID]; ok {
			existing.rrf += s
			existing.keyword = &kw
			continue
		}
		merged[h.summary.ID] = &fused{h: h, rrf: s, keyword: &kw}
		order = append(order, h.summary.ID)
	}

	items := make([]*fused, 0, len(order))
	for _, id := range order {
		items = append(items, merged[id])
	}
	slices.SortStableFunc(items, func(a, b *fused) int {
		return cmp.Compare(b.rrf, a.rrf)
	})

	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]result.Result, 0, len(items))
	for _, f := range items {
		breakdown := make(map[string]float64, 2)
		res := result.New(f.h.summary).WithCombinedScore(min(1, f.rrf/maxFused))
		if f.similarity != nil {
			res = res.WithSemanticSimilarity(*f.similarity)
			breakdown[result.BreakdownSemantic] = percent(*f.similarity)
		}
		if f.keyword != nil {
			breakdown[result.BreakdownKeyword] = percent(*f.keyword)
		}
		out = append(out, res.WithBreakdown(breakdown))
	}
	return out
}

// percent converts a [0, 1] score to a percentage rounded to two decimals.
func percent(v float64) float64 {
	return math.Round(v*10000) / 100
}
