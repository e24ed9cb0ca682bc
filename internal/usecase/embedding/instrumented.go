package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
	"github.com/smartapply/jobsearch/internal/metrics"
)

// BudgetChecker gates provider calls on the token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Remaining(p domusage.Period) int64
}

var budgetPeriods = []domusage.Period{domusage.PeriodDay, domusage.PeriodMonth}

// InstrumentedEmbedder sits between the provider transport and the retry loop.
// It rejects calls over budget, attributes tokens to the request and the
// budget, and logs each call. Transport metrics stay in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. budget can be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed implements domain.Embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Embedding rejected by token budget", zap.Error(err))
			return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		p.logFailure(err, elapsed)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.account(ctx, result.TotalTokens)
	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", result.Embedding.Dim()),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// logFailure logs retryable failures at Warn; the retry loop decides whether they are final.
func (p *InstrumentedEmbedder) logFailure(err error, elapsed time.Duration) {
	log := p.logger.Error
	if domain.IsRetryable(err) {
		log = p.logger.Warn
	}
	log("Embedding request failed", zap.Duration("duration", elapsed), zap.Error(err))
}

// account records tokens on the request collector and the budget.
func (p *InstrumentedEmbedder) account(ctx context.Context, tokens int) {
	domain.UsageFromContext(ctx).Record(tokens)
	if p.budget == nil || tokens <= 0 {
		return
	}
	p.budget.Record(int64(tokens))
	for _, period := range budgetPeriods {
		metrics.EmbeddingBudgetTokensRemaining.
			WithLabelValues(p.provider, string(period)).
			Set(float64(p.budget.Remaining(period)))
	}
}

// HealthCheck delegates to the inner embedder when it supports it.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}
