package preference

import (
	"context"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/preference"
)

// Repository is the remote store contract for preference profiles.
type Repository interface {
	PreferenceProfile(ctx context.Context, userID string) (preference.Profile, error)
	InitializeDefaultPreferences(ctx context.Context, userID string) (string, error)
	CreateDefaultProfile(ctx context.Context, userID string) error
	UpsertPreferenceEmbedding(ctx context.Context, userID, text string, emb domain.Embedding) error
	SaveUserAttributes(ctx context.Context, userID string, attrs preference.Attributes) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
