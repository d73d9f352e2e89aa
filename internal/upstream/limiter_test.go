// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package upstream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterMinimumInterval(t *testing.T) {
	const interval = 20 * time.Millisecond
	l := NewLimiter(interval, 4)

	var mu sync.Mutex
	var stamps []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()

	if len(stamps) != 4 {
		t.Fatalf("got %d acquisitions, want 4", len(stamps))
	}

	// Regardless of caller concurrency, consecutive acquisitions must be
	// separated by at least the interval (small scheduling slack allowed).
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < interval-5*time.Millisecond {
			t.Errorf("gap %d = %v, want >= %v", i, gap, interval)
		}
	}
}

func TestLimiterConcurrencyBound(t *testing.T) {
	l := NewLimiter(0, 2)

	var inFlight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			l.Release()
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", got)
	}
}

func TestLimiterZeroIntervalDoesNotBlock(t *testing.T) {
	l := NewLimiter(0, 1)
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		l.Release()
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("zero-interval limiter took %v for 50 acquisitions", elapsed)
	}
}

func TestLimiterAcquireHonorsContext(t *testing.T) {
	l := NewLimiter(time.Hour, 1)

	// First acquisition consumes the burst token.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		l.Release()
		t.Fatal("Acquire with expired context = nil, want error")
	}
}

func TestLimiterClampsConcurrency(t *testing.T) {
	l := NewLimiter(0, 0)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire on clamped limiter: %v", err)
	}
	l.Release()
}
