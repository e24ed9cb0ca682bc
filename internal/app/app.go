// Package app assembles the store, embedding chain and repositories shared by the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/config"
	"github.com/smartapply/jobsearch/internal/db"
	dbRedis "github.com/smartapply/jobsearch/internal/db/redis"
	"github.com/smartapply/jobsearch/internal/metrics"
	budgetrepo "github.com/smartapply/jobsearch/internal/repository/budget"
	jobsrepo "github.com/smartapply/jobsearch/internal/repository/jobs"
	openaiEmb "github.com/smartapply/jobsearch/internal/transport/openai"
	embeddinguc "github.com/smartapply/jobsearch/internal/usecase/embedding"
)

// Budget counters outlive their bucket so a late reader still sees the final value.
const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// Deps are the long-lived components both binaries are built from.
type Deps struct {
	Store    db.Store
	Jobs     *jobsrepo.Repo
	Embedder *embeddinguc.Client
	Budget   *embeddinguc.BudgetTracker
}

// Close releases the store connection.
func (d *Deps) Close() {
	if d.Store != nil {
		d.Store.Close()
	}
}

// Build connects to the store, waits for it, ensures the vector index and assembles the embedding chain.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	deps := &Deps{Store: store}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		deps.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	deps.Jobs = jobsrepo.New(store, cfg.Embedding.Dimensions,
		jobsrepo.WithKeyPrefix(cfg.Storage.KeyPrefix),
		jobsrepo.WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
	)
	if err := deps.Jobs.EnsureIndex(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	deps.Budget = buildBudget(ctx, cfg, store, logger)
	deps.Embedder = BuildEmbedder(cfg, deps.Budget, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	return deps, nil
}

// buildBudget returns nil when no token limit is configured.
func buildBudget(
	ctx context.Context, cfg *config.Config, store db.KVStore, logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	b := cfg.Embedding.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if b.Action == string(embeddinguc.BudgetActionReject) {
		action = embeddinguc.BudgetActionReject
	}
	tracker := embeddinguc.NewBudgetTracker(
		cfg.Embedding.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger,
	)
	return tracker.WithStore(ctx, budgetrepo.New(store, cfg.Storage.KeyPrefix, budgetDailyTTL, budgetMonthlyTTL))
}

// BuildEmbedder assembles the chain: OpenAI transport -> Instrumented (budget) -> Client (retry/backoff).
func BuildEmbedder(cfg *config.Config, budget *embeddinguc.BudgetTracker, logger *zap.Logger) *embeddinguc.Client {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// A typed nil pointer in the interface would not compare equal to nil.
	var checker embeddinguc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		base, cfg.Embedding.Provider, cfg.Embedding.Model, checker, logger,
	)

	return embeddinguc.NewClient(instrumented, cfg.Embedding.Provider, logger,
		embeddinguc.WithBaseDelay(time.Duration(cfg.Embedding.Retry.BaseDelayMs)*time.Millisecond),
		embeddinguc.WithMaxAttempts(cfg.Embedding.Retry.MaxAttempts),
	)
}
