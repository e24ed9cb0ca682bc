// Command backfill embeds one page of active jobs that have no embedding yet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/app"
	"github.com/smartapply/jobsearch/internal/config"
	domainbackfill "github.com/smartapply/jobsearch/internal/domain/backfill"
	logpkg "github.com/smartapply/jobsearch/internal/logger"
	"github.com/smartapply/jobsearch/internal/usecase/backfill"
	"github.com/smartapply/jobsearch/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	cursor := flag.Int64("cursor", 0, "resume after this job sequence number (next_cursor of a previous run)")
	pageSize := flag.Int("page-size", 0, "candidates per run (default from config)")
	delay := flag.Duration("delay", 0, "pause between provider calls (default from config)")
	flag.Parse()

	if *cursor < 0 {
		fmt.Fprintln(os.Stderr, "cursor must not be negative")
		return 2
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return 1
	}
	if *pageSize > 0 {
		cfg.Backfill.PageSize = *pageSize
	}
	pause := time.Duration(cfg.Backfill.DelaySec) * time.Second
	if *delay > 0 {
		pause = *delay
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting embedding backfill",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int64("cursor", *cursor),
		zap.Int("page_size", cfg.Backfill.PageSize),
		zap.Duration("delay", pause),
	)

	deps, err := app.Build(ctx, &cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer deps.Close()

	coordinator := backfill.New(deps.Jobs, deps.Embedder, logger,
		backfill.WithPageSize(cfg.Backfill.PageSize),
		backfill.WithDelay(pause),
	)

	p, err := coordinator.RunBackfill(ctx, *cursor)
	if err != nil {
		logger.Error("Backfill rejected", zap.Error(err))
		return 1
	}

	printSummary(p)
	switch {
	case p.Err == nil:
		return 0
	case errors.Is(p.Err, context.Canceled):
		logger.Warn("Backfill interrupted", zap.Int64("next_cursor", p.NextCursor))
		return 130
	default:
		logger.Error("Backfill run failed", zap.Error(p.Err))
		return 1
	}
}

func printSummary(p *domainbackfill.Progress) {
	fmt.Printf("run %s: %d/%d attempted, %d embedded, %d failed, next cursor %d",
		p.RunID, p.Attempted(), p.TotalCandidates, p.Processed, len(p.Failures), p.NextCursor)
	if p.Exhausted {
		fmt.Print(" (no more candidates)")
	}
	fmt.Println()
	for _, f := range p.Failures {
		fmt.Printf("  %s: %s\n", f.JobID, f.Reason)
	}
}
