package search

import (
	"context"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
)

// Repository is the remote store contract for search.
type Repository interface {
	SemanticSearch(
		ctx context.Context, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
	) ([]result.Result, error)

	HybridSearch(
		ctx context.Context, text string, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
	) ([]result.Result, error)

	KeywordFallbackSearch(ctx context.Context, filters filter.Set, limit int) ([]result.Result, error)

	PersonalizedRecommendations(ctx context.Context, userID string, limit int) ([]result.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PreferenceInitializer creates a default preference profile on demand.
type PreferenceInitializer interface {
	EnsureInitialized(ctx context.Context, userID string) error
}
