package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genbridge/internal/adapter/repo"
	"genbridge/internal/catalog"
	"genbridge/internal/gateway"
	"genbridge/internal/http/handlers"
	httpapi "genbridge/internal/http/httpapi"
	"genbridge/internal/infra"
	_ "genbridge/internal/normalize/rules"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	registry, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
	}
	logger.Info().
		Int("models", registry.Count()).
		Str("version", registry.Version()).
		Msg("catalog loaded")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

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
		logger.Fatal().Err(err).Msg("failed to configure gateway")
	}

	app := &handlers.App{
		Logger:          logger,
		Registry:        registry,
		Gateway:         gw,
		Tasks:           repo.NewTaskRepository(runner),
		CallbackBaseURL: cfg.CallbackBaseURL,
		FirstPollDelay:  cfg.WorkerPollInterval,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		APIToken:           cfg.APIToken,
		RateLimitPerMinute: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
