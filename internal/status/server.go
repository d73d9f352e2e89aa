// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package status serves the read-only monitoring surface: health, metrics,
// recent jobs, and recent detected changes. Operators use the jobs view to
// spot orphaned runs (a running job with an old start time is a process
// that died without its terminal transition).
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/models"
	"github.com/dugoutproject/dugout/internal/store"
)

const defaultListLimit = 20

// Server is the monitoring HTTP server.
type Server struct {
	store *store.Store
	http  *http.Server
}

// New builds the server over the primary store.
func New(cfg *config.StatusConfig, s *store.Store) *Server {
	srv := &Server{store: s}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", srv.handleJobs)
		r.Get("/changes", srv.handleChanges)
	})

	srv.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Shutdown or listener failure.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("Status server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// The store backs every endpoint; an unreadable ledger means unhealthy.
	if _, err := s.store.CountRows(r.Context(), "jobs"); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.RecentJobs(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*models.JobRecord{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := s.store.RecentChanges(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if changes == nil {
		changes = []*models.ChangeRecord{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// listLimit parses ?limit=N, clamped to a sane range.
func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultListLimit
	}
	if n > 500 {
		return 500
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode status response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
