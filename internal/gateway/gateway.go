// Package gateway owns every outbound call to the generation provider. It
// exposes Submit and Poll, enforces catalog membership before any network
// traffic, and wraps each call in a bounded-concurrency retry policy with
// exponential backoff and jitter. The gateway never loops on a task: one
// Poll is one provider exchange, and the caller decides when to ask again.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"genbridge/internal/catalog"
	"genbridge/internal/infra"
	"genbridge/internal/normalize"
)

const (
	defaultMaxConcurrent  = 8
	defaultMaxRetries     = 3
	defaultRetryBase      = 500 * time.Millisecond
	defaultMaxRetryDelay  = 30 * time.Second
	defaultRequestTimeout = 30 * time.Second

	// rateLimitBackoffFactor amplifies the backoff base after a 429;
	// a rate limit asks for a longer cooldown than a flaky 5xx.
	rateLimitBackoffFactor = 5
)

// Options configures the task gateway.
type Options struct {
	BaseURL        string
	APIKey         string
	Registry       *catalog.Registry
	HTTPClient     *http.Client
	Logger         *infra.Logger
	MaxConcurrent  int64
	MaxRetries     int
	RetryBase      time.Duration
	MaxRetryDelay  time.Duration
	RequestTimeout time.Duration
}

// Gateway submits generation tasks to the provider and polls their records.
// The concurrency semaphore is its only shared mutable state; a Gateway is
// safe for concurrent use.
type Gateway struct {
	baseURL        string
	apiKey         string
	registry       *catalog.Registry
	httpClient     *http.Client
	logger         *infra.Logger
	sem            *semaphore.Weighted
	maxRetries     int
	retryBase      time.Duration
	maxRetryDelay  time.Duration
	requestTimeout time.Duration
}

// New constructs a gateway with sane defaults and injected dependencies.
func New(opts Options) (*Gateway, error) {
	if opts.Registry == nil {
		return nil, ErrMissingRegistry
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	maxRetryDelay := opts.MaxRetryDelay
	if maxRetryDelay <= 0 {
		maxRetryDelay = defaultMaxRetryDelay
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Gateway{
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(opts.APIKey),
		registry:       opts.Registry,
		httpClient:     httpClient,
		logger:         logger,
		sem:            semaphore.NewWeighted(maxConcurrent),
		maxRetries:     maxRetries,
		retryBase:      retryBase,
		maxRetryDelay:  maxRetryDelay,
		requestTimeout: requestTimeout,
	}, nil
}

// Submit registers one generation job with the provider and returns its
// handle. The registry gate runs first: an unknown model id returns a
// catalog.ErrModelNotFound before any network traffic.
func (g *Gateway) Submit(ctx context.Context, modelID string, input normalize.Payload, callbackURL string) (*TaskHandle, error) {
	if err := g.registry.Enforce(modelID); err != nil {
		return nil, err
	}
	spec, _ := g.registry.Get(modelID)

	body, err := json.Marshal(createRequest{
		Model:       modelID,
		Input:       input,
		CallBackURL: callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: encode create request: %w", err)
	}

	raw, err := g.requestWithRetry(ctx, http.MethodPost, g.baseURL+spec.CreatePath, body)
	if err != nil {
		return nil, err
	}
	taskID, err := parseCreateEnvelope(raw)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("model", modelID).
		Str("task_id", taskID).
		Msg("task submitted")

	return &TaskHandle{
		ID:        taskID,
		Model:     modelID,
		CreatedAt: time.Now().UTC(),
		Input:     input,
	}, nil
}

// Poll fetches one status snapshot for a submitted task. waiting, queuing,
// and generating are non-terminal; the caller chooses its own interval and
// asks again. Success carries the parsed result, fail the provider's
// code+message pair.
func (g *Gateway) Poll(ctx context.Context, modelID, taskID string) (*TaskStatus, error) {
	if err := g.registry.Enforce(modelID); err != nil {
		return nil, err
	}
	spec, _ := g.registry.Get(modelID)

	endpoint := g.baseURL + spec.RecordPath + "?taskId=" + url.QueryEscape(taskID)
	raw, err := g.requestWithRetry(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return parseRecordEnvelope(spec, taskID, raw)
}
