// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package upstream

import (
	"context"
	"errors"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/metrics"
)

// BreakerClient wraps a Fetcher with a circuit breaker. Long historical
// collections issue thousands of calls; when the upstream API degrades,
// the breaker fails the remaining calls fast instead of burning the retry
// budget on every date.
//
// The breaker uses real time for its interval and timeout calculations.
// Unit tests should exercise the wrapped Fetcher directly.
type BreakerClient struct {
	inner Fetcher
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreakerClient wraps fetcher with a circuit breaker:
//   - Opens after a 60% failure rate with at least 10 requests
//   - 1 minute measurement window while closed
//   - 2 minute timeout before half-open probing
//   - 3 concurrent requests allowed in half-open state
func NewBreakerClient(fetcher Fetcher) *BreakerClient {
	const cbName = "upstream-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening upstream circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("Upstream circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},

		// Permanent upstream failures are caller errors (bad credentials,
		// malformed request), not API health signals. Counting them as
		// successes keeps one misconfigured collection from opening the
		// circuit for every other caller.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
	})

	return &BreakerClient{inner: fetcher, cb: cb, name: cbName}
}

// Fetch implements Fetcher. A rejected call (open circuit) is surfaced as
// a TransientError so the collector's per-date skip policy applies.
func (b *BreakerClient) Fetch(ctx context.Context, endpoint string, params url.Values, result any) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Fetch(ctx, endpoint, params, result)
	})
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return &TransientError{Endpoint: endpoint, Err: err}
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	return err
}

// stateToFloat maps circuit breaker states to metric gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
