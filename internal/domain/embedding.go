package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Embedding is a fixed-dimension vector produced for one source text.
// Callers must treat it as immutable.
type Embedding []float32

// Dim returns the vector dimension.
func (e Embedding) Dim() int { return len(e) }

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    Embedding
	PromptTokens int
	TotalTokens  int
}
