// Package main provides the entry point for the PR review API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akhil1parekh/github-pr-review-agent/internal/config"
	"github.com/akhil1parekh/github-pr-review-agent/internal/github"
	"github.com/akhil1parekh/github-pr-review-agent/internal/llm"
	"github.com/akhil1parekh/github-pr-review-agent/internal/metrics"
	"github.com/akhil1parekh/github-pr-review-agent/internal/server"
	"github.com/akhil1parekh/github-pr-review-agent/internal/service"
	"github.com/akhil1parekh/github-pr-review-agent/internal/taskstore"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("pr-review-agent starting",
		"version", version,
		"redis_addr", cfg.RedisAddr,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"workers", cfg.Workers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	store, err := taskstore.NewRedisStore(ctx, taskstore.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing redis connection")
		_ = store.Close()
	}()

	collector := metrics.NewCollector()

	model, err := llm.NewModel(cfg)
	if err != nil {
		logger.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}
	logger.Info("LLM model initialized", "provider", cfg.LLMProvider, "model", cfg.LLMModel)

	reviewer := llm.NewReviewer(model, logger, collector)
	fetcher := github.NewClient(ctx, cfg.GitHubToken, logger, collector)

	orch := service.NewOrchestrator(store, fetcher, reviewer, logger, collector)
	dispatcher := service.NewDispatcher(orch, cfg.Workers, 4*cfg.Workers, logger)
	dispatcher.Start(ctx)

	srv := server.New(store, orch, dispatcher, logger, collector, version)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	if err := srv.Run(ctx, addr); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
