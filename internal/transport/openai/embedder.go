package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API.
// It performs exactly one HTTP request per Embed call and classifies failures
// into the domain taxonomy; retry belongs to the caller.
type Embedder struct {
	client     *openai.Client
	hasKey     bool
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		hasKey:     strings.TrimSpace(cfg.APIKey) != "",
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if !e.hasKey {
		return domain.EmbeddingResult{}, fmt.Errorf("embedding api key not configured: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("empty text: %w", domain.ErrInvalidInput)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EmbeddingResult{}, ctxErr
		}
		classified := classifyError(err)
		e.fail(classified)
		return domain.EmbeddingResult{}, classified
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		err := &domain.ProviderError{Detail: "empty embedding response", Kind: domain.ErrTransient}
		e.fail(err)
		return domain.EmbeddingResult{}, err
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		err := &domain.ProviderError{
			Detail: fmt.Sprintf("expected %d dimensions, got %d", e.dimensions, len(vec)),
			Kind:   domain.ErrTransient,
		}
		e.fail(err)
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    domain.Embedding(vec),
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if !e.hasKey {
		return fmt.Errorf("embedding api key not configured: %w", domain.ErrInvalidInput)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", classifyError(err))
	}
	return nil
}

func (e *Embedder) fail(err error) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), errorType(err)).Inc()
	e.logger.Debug("Embedding provider call failed",
		zap.String("provider", e.provider),
		zap.String("model", string(e.model)),
		zap.Error(err),
	)
}

// classifyError maps a go-openai error onto *domain.ProviderError.
func classifyError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = strings.TrimSpace(string(reqErr.Body))
		}
		return &domain.ProviderError{
			StatusCode: reqErr.HTTPStatusCode,
			Detail:     detail,
			Kind:       kindForStatus(reqErr.HTTPStatusCode),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			StatusCode: apiErr.HTTPStatusCode,
			Detail:     apiErr.Message,
			Kind:       kindForStatus(apiErr.HTTPStatusCode),
		}
	}

	return &domain.ProviderError{Detail: err.Error(), Kind: domain.ErrTransient}
}

func kindForStatus(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity,
		http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrInvalidInput
	default:
		return domain.ErrTransient
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "transient"
	}
}

// extractDetail pulls a message out of the provider's JSON error body.
// Accepts {"detail": "..."} and {"error": {"message": "..."}}.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
