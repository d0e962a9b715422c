// Harrier - Hybrid credit and fraud risk scoring for batch ledgers.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/credit"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/rules"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	runOnce := flag.Bool("once", false, "run one scoring batch and exit")
	flag.Parse()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HARRIER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("HARRIER_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// Input/output overrides
	if v := os.Getenv("HARRIER_APPLICANTS"); v != "" {
		cfg.Pipeline.ApplicantsPath = v
	}
	if v := os.Getenv("HARRIER_TRANSACTIONS"); v != "" {
		cfg.Pipeline.TransactionsPath = v
	}
	if v := os.Getenv("HARRIER_OUTPUT_DIR"); v != "" {
		cfg.Pipeline.OutputDir = v
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Scorers
	creditScorer, err := credit.NewScorer(rules.DefaultCreditRules())
	if err != nil {
		slog.Error("failed to initialize credit scorer", "error", err)
		os.Exit(1)
	}
	fraudScorer, err := fraud.NewScorer(rules.DefaultScoringConfig())
	if err != nil {
		slog.Error("failed to initialize fraud scorer", "error", err)
		os.Exit(1)
	}
	slog.Info("scorers initialized",
		"credit_rules", len(rules.DefaultCreditRules()),
		"fraud_rules", len(rules.DefaultFraudRules()),
	)

	// Initialize Pipeline
	p := pipeline.New(cfg.Pipeline, creditScorer, fraudScorer, repo, cacheImpl, busImpl)

	if *runOnce {
		result, err := p.Run(ctx)
		if err != nil {
			slog.Error("batch run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("batch complete",
			"batch_id", result.Batch.ID,
			"customers", result.Batch.Customers,
			"high_risk_pct", result.Batch.Summary.HighRiskPct,
		)
		return
	}

	// Initialize batch Worker
	batchWorker := worker.NewWorker(busImpl, p)
	if err := batchWorker.Start(); err != nil {
		slog.Error("failed to start batch worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, p, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop batch worker first
	if err := batchWorker.Stop(); err != nil {
		slog.Error("failed to stop batch worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║     Hybrid Risk Scoring Engine            ║")
	fmt.Println("  ║      Two lenses on every customer.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /run                  - Queue a scoring batch")
	fmt.Println("    GET  /batches/{id}         - Get batch by ID")
	fmt.Println("    GET  /profiles             - List hybrid customer profiles")
	fmt.Println("    GET  /profiles/{customer}  - Get one customer profile")
	fmt.Println("    GET  /summary              - Latest batch business impact")
	fmt.Println("    GET  /backtest             - Monthly backtest report")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
