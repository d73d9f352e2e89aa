// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package store provides the primary writable DuckDB store.
//
// The store holds three kinds of tables:
//   - Mutable league data (transactions, roster_entries, player_stats),
//     every row carrying the job_id of the run that wrote it
//   - The job ledger (jobs)
//   - Change-detection bookkeeping (entity_fingerprints, change_log)
//
// Writes for one collection date are applied in a single transaction via
// ApplyDateBatch, so a failure partway through a run leaves a clean prefix
// of fully-committed dates.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/logging"
)

// defaultQueryTimeout bounds individual statements that run without a
// caller-supplied deadline.
const defaultQueryTimeout = 30 * time.Second

// Store wraps the DuckDB connection and provides data access methods.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// Open creates a database connection and initializes the schema. The
// special path ":memory:" opens an in-memory database for tests.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if path != ":memory:" {
		// Ensure the parent directory exists before DuckDB opens the file.
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	} else {
		path = ""
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", path, numThreads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is an in-process engine with a single writer; extra pooled
	// connections only add lock contention on the file.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, cfg: cfg}
	if err := s.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Debug().Str("path", cfg.Path).Msg("Database opened")
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Exec runs one parameterized statement against the store. Used by
// maintenance tooling and by replica-side appliers that share this schema.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// ensureContext guarantees a deadline on database operations.
func (s *Store) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// closeQuietly closes a connection, logging rather than returning errors.
func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database connection")
	}
}
