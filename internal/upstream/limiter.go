// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package upstream

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces the upstream provider's request discipline process-wide:
// a minimum interval between outbound requests plus a bound on concurrent
// in-flight requests. One Limiter is constructed per process and passed by
// reference into every client, never held as a hidden package singleton, so
// tests can inject a zero-delay limiter.
type Limiter struct {
	rl  *rate.Limiter
	sem chan struct{}
}

// NewLimiter builds a limiter with the given minimum inter-request interval
// and in-flight ceiling. A zero minInterval disables the interval floor
// (used in tests); maxConcurrent below 1 is clamped to 1.
func NewLimiter(minInterval time.Duration, maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &Limiter{
		// Burst 1: the interval applies between every pair of requests,
		// not on average over a window.
		rl:  rate.NewLimiter(limit, 1),
		sem: make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until a concurrency slot is held and the minimum interval
// since the previous request has elapsed. Callers must Release the slot
// when the request finishes, including on error paths.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := l.rl.Wait(ctx); err != nil {
		<-l.sem
		return err
	}
	return nil
}

// Release returns the concurrency slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.sem
}
