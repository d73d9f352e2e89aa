// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package upstream wraps the league data API behind a single authenticated
// call primitive with rate limiting, bounded retries, and a typed failure
// taxonomy.
//
// Call discipline:
//   - No two outbound requests within the configured minimum interval,
//     process-wide, regardless of caller concurrency (shared Limiter).
//   - Transient failures (timeout, 5xx, 429) retry with exponential
//     backoff up to the attempt ceiling, honoring Retry-After, then
//     surface as *TransientError.
//   - Permanent failures (other 4xx) surface immediately as
//     *PermanentError, after at most one token refresh on 401.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/metrics"
)

// TokenSource yields a valid bearer credential on demand. The OAuth
// refresh machinery behind it is a black box to the pipeline.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RefreshingTokenSource is optionally implemented by token sources that
// can mint a fresh credential after an authentication expiry. When the
// client sees a 401 it refreshes once and retries before declaring the
// failure permanent.
type RefreshingTokenSource interface {
	TokenSource
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for fixed API keys.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", errors.New("upstream API key is empty")
	}
	return string(s), nil
}

// Fetcher is the single upstream call primitive consumed by the collector.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values, result any) error
}

// Client is the rate-limited, retrying upstream API client. It is stateless
// between calls except for the shared Limiter.
type Client struct {
	baseURL       string
	tokens        TokenSource
	limiter       *Limiter
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
}

// NewClient builds a client from config. The limiter is injected so that
// every client in the process shares one request clock.
func NewClient(cfg *config.UpstreamConfig, tokens TokenSource, limiter *Limiter) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		tokens:        tokens,
		limiter:       limiter,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// Fetch executes one authenticated GET against the upstream API and decodes
// the JSON payload into result. Retries are handled internally; the error
// returned is always classified as transient or permanent.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, result any) error {
	delay := c.retryDelay
	refreshed := false

	var err error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if ctx.Err() != nil {
			return &TransientError{Endpoint: endpoint, Err: ctx.Err()}
		}

		var retryAfter time.Duration
		retryAfter, err = c.doFetch(ctx, endpoint, params, result)
		if err == nil {
			return nil
		}

		// Authentication expiry: refresh once if the token source can,
		// without consuming a retry attempt.
		var perm *PermanentError
		if errors.As(err, &perm) && perm.Status == http.StatusUnauthorized && !refreshed {
			if refresher, ok := c.tokens.(RefreshingTokenSource); ok {
				refreshed = true
				if _, rerr := refresher.Refresh(ctx); rerr == nil {
					logging.Ctx(ctx).Info().Str("endpoint", endpoint).Msg("Refreshed upstream credential after 401")
					attempt--
					continue
				}
			}
		}

		if !IsTransient(err) {
			return err
		}

		if attempt == c.retryAttempts-1 {
			break
		}

		wait := delay
		if retryAfter > 0 {
			wait = retryAfter
		}
		metrics.UpstreamRetries.WithLabelValues(endpoint).Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", c.retryAttempts).
			Dur("delay", wait).
			Msg("Upstream retry")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return &TransientError{Endpoint: endpoint, Err: ctx.Err()}
		}
		delay *= 2
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

// doFetch performs a single rate-limited request attempt. The returned
// duration is a server-requested retry delay (Retry-After), zero if absent.
func (c *Client) doFetch(ctx context.Context, endpoint string, params url.Values, result any) (time.Duration, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, &TransientError{Endpoint: endpoint, Err: err}
	}
	defer c.limiter.Release()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, &PermanentError{Endpoint: endpoint, Status: http.StatusUnauthorized,
			Err: fmt.Errorf("obtain credential: %w", err)}
	}

	reqURL := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, &PermanentError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstreamRequest(endpoint, "transient", time.Since(start))
		if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return 0, &TransientError{Endpoint: endpoint, Err: fmt.Errorf("request timeout: %w", err)}
		}
		return 0, &TransientError{Endpoint: endpoint, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if cerr := classifyStatus(endpoint, resp.StatusCode); cerr != nil {
		outcome := "permanent"
		if IsTransient(cerr) {
			outcome = "transient"
		}
		metrics.ObserveUpstreamRequest(endpoint, outcome, time.Since(start))
		return parseRetryAfter(resp.Header.Get("Retry-After")), cerr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			metrics.ObserveUpstreamRequest(endpoint, "permanent", time.Since(start))
			return 0, &PermanentError{Endpoint: endpoint, Status: resp.StatusCode,
				Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	metrics.ObserveUpstreamRequest(endpoint, "ok", time.Since(start))
	return 0, nil
}

// parseRetryAfter parses an RFC 6585 Retry-After header given in seconds.
// Returns zero for absent or unparseable values.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
