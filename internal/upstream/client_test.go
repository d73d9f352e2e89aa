// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dugoutproject/dugout/internal/config"
)

// testClient builds a client against srv with a zero-delay limiter and
// millisecond retry delays.
func testClient(srv *httptest.Server, tokens TokenSource) *Client {
	cfg := &config.UpstreamConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		MinInterval:    0,
		MaxConcurrent:  2,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
	}
	return NewClient(cfg, tokens, NewLimiter(0, 2))
}

func TestFetchDecodesPayload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"team_id":"NYM","count":3}`))
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("secret"))

	var result struct {
		TeamID string `json:"team_id"`
		Count  int    `json:"count"`
	}
	if err := c.Fetch(context.Background(), "/rosters", nil, &result); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.TeamID != "NYM" || result.Count != 3 {
		t.Errorf("decoded = %+v, want NYM/3", result)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("k"))
	if err := c.Fetch(context.Background(), "/stats", nil, nil); err != nil {
		t.Fatalf("Fetch after transient failures: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchExhaustsRetriesOnPersistentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("k"))
	err := c.Fetch(context.Background(), "/stats", nil, nil)
	if err == nil {
		t.Fatal("Fetch = nil, want transient failure")
	}
	if !IsTransient(err) {
		t.Errorf("error not classified transient: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want retry ceiling 3", got)
	}
}

func TestFetchDoesNotRetryPermanentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("k"))
	err := c.Fetch(context.Background(), "/stats", nil, nil)
	if err == nil {
		t.Fatal("Fetch = nil, want permanent failure")
	}
	if !IsPermanent(err) {
		t.Errorf("error not classified permanent: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retry)", got)
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("k"))
	if err := c.Fetch(context.Background(), "/stats", nil, nil); err != nil {
		t.Fatalf("Fetch after 429: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

// refreshableToken flips to a good credential after Refresh.
type refreshableToken struct {
	current   string
	refreshes int32
}

func (r *refreshableToken) Token(_ context.Context) (string, error) { return r.current, nil }

func (r *refreshableToken) Refresh(_ context.Context) (string, error) {
	atomic.AddInt32(&r.refreshes, 1)
	r.current = "fresh"
	return r.current, nil
}

func TestFetchRefreshesCredentialOnceOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tokens := &refreshableToken{current: "stale"}
	c := testClient(srv, tokens)
	if err := c.Fetch(context.Background(), "/stats", nil, nil); err != nil {
		t.Fatalf("Fetch with refreshable token: %v", err)
	}
	if got := atomic.LoadInt32(&tokens.refreshes); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestFetch401WithStaticTokenIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("bad"))
	err := c.Fetch(context.Background(), "/stats", nil, nil)
	if !IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestFetchMalformedPayloadIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken`))
	}))
	defer srv.Close()

	c := testClient(srv, StaticToken("k"))
	var out map[string]any
	err := c.Fetch(context.Background(), "/stats", nil, &out)
	if !IsPermanent(err) {
		t.Fatalf("error = %v, want permanent decode failure", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
		permanent bool
	}{
		{200, false, false},
		{204, false, false},
		{429, true, false},
		{500, true, false},
		{503, true, false},
		{400, false, true},
		{401, false, true},
		{404, false, true},
	}
	for _, tt := range tests {
		err := classifyStatus("/x", tt.status)
		if (err == nil) != (!tt.transient && !tt.permanent) {
			t.Errorf("status %d: err = %v", tt.status, err)
			continue
		}
		if tt.transient && !IsTransient(err) {
			t.Errorf("status %d not transient: %v", tt.status, err)
		}
		if tt.permanent && !IsPermanent(err) {
			t.Errorf("status %d not permanent: %v", tt.status, err)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"0", 0},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
