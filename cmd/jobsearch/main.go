package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/app"
	"github.com/smartapply/jobsearch/internal/config"
	"github.com/smartapply/jobsearch/internal/domain/search/query"
	logpkg "github.com/smartapply/jobsearch/internal/logger"
	"github.com/smartapply/jobsearch/internal/metrics"
	chiTransport "github.com/smartapply/jobsearch/internal/transport/chi"
	"github.com/smartapply/jobsearch/internal/usecase/backfill"
	healthuc "github.com/smartapply/jobsearch/internal/usecase/health"
	"github.com/smartapply/jobsearch/internal/usecase/preference"
	searchuc "github.com/smartapply/jobsearch/internal/usecase/search"
	"github.com/smartapply/jobsearch/internal/usecase/similar"
	usageuc "github.com/smartapply/jobsearch/internal/usecase/usage"
	"github.com/smartapply/jobsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting jobsearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	deps, err := app.Build(context.Background(), &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer deps.Close()

	prefs := preference.New(deps.Jobs, deps.Embedder, logger)
	searchSvc := searchuc.New(deps.Jobs, deps.Embedder, prefs, logger)
	similarSvc := similar.New(deps.Jobs, cfg.Similar.MaxLimit)
	backfillSvc := backfill.New(deps.Jobs, deps.Embedder, logger,
		backfill.WithPageSize(cfg.Backfill.PageSize),
		backfill.WithDelay(time.Duration(cfg.Backfill.DelaySec)*time.Second),
	)
	healthSvc := healthuc.New(deps.Store, deps.Jobs, deps.Embedder)

	// A typed nil pointer in the interface would not compare equal to nil.
	var budgetReader usageuc.BudgetReader
	if deps.Budget != nil {
		budgetReader = deps.Budget
	}
	usageSvc := usageuc.New(cfg.Embedding.Provider, budgetReader)

	server := chiTransport.NewServer(chiTransport.Services{
		Search:      searchSvc,
		Similar:     similarSvc,
		Preferences: prefs,
		Jobs:        deps.Jobs,
		Backfill:    backfillSvc,
		Health:      healthSvc,
		Usage:       usageSvc,
	}, chiTransport.Defaults{
		Search: query.Defaults{
			SemanticThreshold: cfg.Search.SemanticThreshold,
			HybridThreshold:   cfg.Search.HybridThreshold,
			Limit:             cfg.Search.DefaultLimit,
		},
		SearchMaxLimit:       cfg.Search.MaxLimit,
		SimilarThreshold:     cfg.Similar.Threshold,
		SimilarLimit:         cfg.Similar.Limit,
		RecommendationsLimit: cfg.Recommendations.Limit,
	}, logger)

	metrics.RegisterHTTPMetrics()
	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
