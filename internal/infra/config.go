package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	ProviderBaseURL string
	ProviderAPIKey  string
	CatalogPath     string
	CallbackBaseURL string
	APIToken        string

	GatewayMaxConcurrent  int
	GatewayMaxRetries     int
	GatewayRetryBase      time.Duration
	GatewayMaxRetryDelay  time.Duration
	GatewayRequestTimeout time.Duration

	WorkerPollInterval time.Duration
	WorkerClaimBatch   int
	WorkerClaimLease   time.Duration

	DBMaxConns int32
	DBMinConns int32

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ProviderBaseURL: strings.TrimRight(os.Getenv("PROVIDER_BASE_URL"), "/"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		CatalogPath:     getEnv("CATALOG_PATH", "./catalog.json"),
		CallbackBaseURL: strings.TrimRight(os.Getenv("CALLBACK_BASE_URL"), "/"),
		APIToken:        os.Getenv("API_TOKEN"),

		GatewayMaxConcurrent:  getEnvInt("GATEWAY_MAX_CONCURRENT", 8),
		GatewayMaxRetries:     getEnvInt("GATEWAY_MAX_RETRIES", 3),
		GatewayRetryBase:      time.Millisecond * time.Duration(getEnvInt("GATEWAY_RETRY_BASE_MS", 500)),
		GatewayMaxRetryDelay:  time.Millisecond * time.Duration(getEnvInt("GATEWAY_MAX_RETRY_DELAY_MS", 30000)),
		GatewayRequestTimeout: time.Second * time.Duration(getEnvInt("GATEWAY_REQUEST_TIMEOUT_SECONDS", 30)),

		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 3)),
		WorkerClaimBatch:   getEnvInt("WORKER_CLAIM_BATCH", 16),
		WorkerClaimLease:   time.Second * time.Duration(getEnvInt("WORKER_CLAIM_LEASE_SECONDS", 30)),

		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns: int32(getEnvInt("DB_MIN_CONNS", 1)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ProviderBaseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL is required")
	}

	if cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("PROVIDER_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
