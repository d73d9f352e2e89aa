// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/models"
	"github.com/dugoutproject/dugout/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	s, err := store.Open(&config.DatabaseConfig{Path: ":memory:", Threads: 2, MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return New(&config.StatusConfig{Enabled: true, Addr: ":0"}, s), s
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
}

func TestJobsEndpoint(t *testing.T) {
	srv, s := testServer(t)
	ctx := context.Background()

	rec := get(t, srv, "/api/v1/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/jobs = %d, want 200", rec.Code)
	}
	var empty []*models.JobRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty store listed %d jobs", len(empty))
	}

	for i, id := range []string{"collect-test-20250813000000-0001", "collect-test-20250813000000-0002"} {
		job := &models.JobRecord{
			ID:          id,
			Type:        models.JobCollect,
			Environment: "test",
			Status:      models.JobRunning,
			StartedAt:   time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertJob(ctx, job); err != nil {
			t.Fatalf("InsertJob() error = %v", err)
		}
	}

	rec = get(t, srv, "/api/v1/jobs?limit=1")
	var jobs []*models.JobRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("limit=1 returned %d jobs", len(jobs))
	}
	// Newest first.
	if jobs[0].ID != "collect-test-20250813000000-0002" {
		t.Errorf("first job = %s, want the newest", jobs[0].ID)
	}
}

func TestChangesEndpoint(t *testing.T) {
	srv, s := testServer(t)
	ctx := context.Background()

	batch := &store.DateBatch{
		Date:  models.Midnight(time.Now().UTC()),
		JobID: "j1",
		Changes: []*models.ChangeRecord{{
			EntityType: models.EntityRoster,
			NaturalKey: "2025-08-13/NYM",
			OldHash:    "aaaa",
			NewHash:    "bbbb",
			JobID:      "j1",
		}},
	}
	if err := s.ApplyDateBatch(ctx, batch); err != nil {
		t.Fatalf("ApplyDateBatch() error = %v", err)
	}

	rec := get(t, srv, "/api/v1/changes")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/changes = %d, want 200", rec.Code)
	}
	var changes []*models.ChangeRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &changes); err != nil {
		t.Fatalf("decode changes: %v", err)
	}
	if len(changes) != 1 || changes[0].NaturalKey != "2025-08-13/NYM" {
		t.Errorf("changes = %+v", changes)
	}
}

func TestListLimitParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", defaultListLimit},
		{"10", 10},
		{"0", defaultListLimit},
		{"-5", defaultListLimit},
		{"junk", defaultListLimit},
		{"9999", 500},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit="+tt.raw, nil)
		if got := listLimit(req); got != tt.want {
			t.Errorf("listLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
