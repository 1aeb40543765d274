package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genbridge/internal/adapter/repo"
	"genbridge/internal/catalog"
	"genbridge/internal/gateway"
	"genbridge/internal/infra"
	"genbridge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("worker: failed to load catalog")
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	gw, err := gateway.New(gateway.Options{
		BaseURL:        cfg.ProviderBaseURL,
		APIKey:         cfg.ProviderAPIKey,
		Registry:       registry,
		Logger:         &logger,
		MaxConcurrent:  int64(cfg.GatewayMaxConcurrent),
		MaxRetries:     cfg.GatewayMaxRetries,
		RetryBase:      cfg.GatewayRetryBase,
		MaxRetryDelay:  cfg.GatewayMaxRetryDelay,
		RequestTimeout: cfg.GatewayRequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gateway")
	}

	w, err := worker.New(worker.Options{
		Tasks:        repo.NewTaskRepository(runner),
		Gateway:      gw,
		Logger:       &logger,
		PollInterval: cfg.WorkerPollInterval,
		ClaimBatch:   cfg.WorkerClaimBatch,
		ClaimLease:   cfg.WorkerClaimLease,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure")
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
