package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// Client turns text into embeddings with bounded exponential retry.
// Attempts run sequentially; before attempt n (n >= 1, zero-based) it waits baseDelay*2^(n-1).
// Only RateLimited and Transient failures are retried.
type Client struct {
	inner       domain.Embedder
	provider    string
	baseDelay   time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithMaxAttempts sets the total number of attempts, including the first one.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewClient wraps inner with the retry policy.
func NewClient(inner domain.Embedder, provider string, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		inner:       inner,
		provider:    provider,
		baseDelay:   DefaultBaseDelay,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed returns the embedding of text or the last attempt's error.
// Blank text fails with ErrInvalidInput before any provider call.
// Cancellation during a wait returns the context error immediately.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: empty text: %w", domain.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Debug("Retrying embedding request",
				zap.String("provider", c.provider),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			metrics.EmbeddingRetriesTotal.WithLabelValues(c.provider, retryReason(lastErr)).Inc()
			if err := wait(ctx, delay); err != nil {
				return domain.EmbeddingResult{}, err
			}
		}

		if err := ctx.Err(); err != nil {
			return domain.EmbeddingResult{}, err
		}

		res, err := c.inner.Embed(ctx, text)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EmbeddingResult{}, ctxErr
		}
		if !domain.IsRetryable(err) {
			return domain.EmbeddingResult{}, err
		}
	}

	c.logger.Warn("Embedding retries exhausted",
		zap.String("provider", c.provider),
		zap.Int("attempts", c.maxAttempts),
		zap.Error(lastErr),
	)
	return domain.EmbeddingResult{}, lastErr
}

// HealthCheck delegates to the inner embedder when it supports it.
func (c *Client) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.baseDelay * time.Duration(1<<(attempt-1))
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryReason(err error) string {
	if errors.Is(err, domain.ErrRateLimited) {
		return "rate_limited"
	}
	return "transient"
}
