package gateway

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type classification int

const (
	classOK classification = iota
	classRetryStatus
	classRateLimit
	classTerminalStatus
	classNetwork
)

func classifyStatus(status int) classification {
	switch {
	case status >= 200 && status < 300:
		return classOK
	case status == http.StatusTooManyRequests:
		return classRateLimit
	case status >= 500:
		return classRetryStatus
	default:
		return classTerminalStatus
	}
}

// computeDelay returns the pre-jitter backoff delay before retry attempt k:
// min(base * 2^k, maxDelay). k counts completed attempts from zero.
func computeDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// withJitter spreads a delay uniformly into [delay, 1.2*delay] so that
// callers backing off together do not retry together.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	span := int64(d) / 5
	if span <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(span+1))
}

// sleepCtx is a cooperative pause: it returns early with the context's error
// when the caller gives up mid-backoff.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// requestWithRetry performs one logical provider call under the gateway's
// resilience policy: up to maxRetries+1 attempts, each holding one semaphore
// slot for the duration of the network exchange only, with exponential
// backoff between attempts. 429 answers back off from a 5x amplified base;
// 5xx answers and transport failures retry from the plain base; any other
// non-2xx answer is surfaced immediately. After the budget is spent the most
// specific terminal error wins: rate limit, then network, then status.
func (g *Gateway) requestWithRetry(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	attempts := g.maxRetries + 1

	var (
		lastClass  classification
		lastStatus int
		lastBody   string
		lastErr    error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			base := g.retryBase
			if lastClass == classRateLimit {
				base *= rateLimitBackoffFactor
			}
			delay := withJitter(computeDelay(base, g.maxRetryDelay, attempt-1))
			g.logger.Warn().
				Str("method", method).
				Str("url", url).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying provider call")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		raw, status, err := g.attempt(ctx, method, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastClass, lastErr = classNetwork, err
			continue
		}

		switch classifyStatus(status) {
		case classOK:
			return raw, nil
		case classTerminalStatus:
			return nil, &StatusError{Status: status, Body: trimBody(raw)}
		case classRateLimit:
			lastClass, lastStatus, lastBody = classRateLimit, status, trimBody(raw)
		default:
			lastClass, lastStatus, lastBody = classRetryStatus, status, trimBody(raw)
		}
	}

	switch lastClass {
	case classRateLimit:
		return nil, &RateLimitError{Attempts: attempts}
	case classNetwork:
		return nil, &NetworkError{Err: lastErr}
	default:
		return nil, &StatusError{Status: lastStatus, Body: lastBody}
	}
}

// attempt issues a single HTTP exchange. The semaphore slot is held from
// just before the request until the body is read, and is released on every
// exit path; backoff sleeps never hold a slot.
func (g *Gateway) attempt(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer g.sem.Release(1)

	attemptCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}

const maxErrorBody = 512

func trimBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
