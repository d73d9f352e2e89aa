// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package store

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates all tables and indexes idempotently.
func (s *Store) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements.
// All mutable tables carry job_id (the run that wrote the row) and
// updated_at (the export watermark column).
func tableCreationQueries() []string {
	return []string{
		// Job ledger - one row per collection or sync execution
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			job_type TEXT NOT NULL,
			environment TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			range_start TIMESTAMP,
			range_end TIMESTAMP,
			records_seen INTEGER NOT NULL DEFAULT 0,
			records_written INTEGER NOT NULL DEFAULT 0,
			progress_pct INTEGER,
			metadata TEXT,
			error TEXT,
			updated_at TIMESTAMP NOT NULL
		)`,

		// League transactions keyed by the upstream id
		`CREATE TABLE IF NOT EXISTS transactions (
			upstream_id TEXT PRIMARY KEY,
			date TIMESTAMP NOT NULL,
			type TEXT NOT NULL,
			team_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			player_name TEXT,
			description TEXT,
			job_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		// Roster slots, replaced wholesale per (date, team)
		`CREATE TABLE IF NOT EXISTS roster_entries (
			date TIMESTAMP NOT NULL,
			team_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT,
			position TEXT,
			status TEXT,
			slot INTEGER,
			job_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (date, team_id, player_id)
		)`,

		// Player performance lines, upserted per (date, player)
		`CREATE TABLE IF NOT EXISTS player_stats (
			date TIMESTAMP NOT NULL,
			player_id TEXT NOT NULL,
			team_id TEXT,
			at_bats INTEGER NOT NULL DEFAULT 0,
			hits INTEGER NOT NULL DEFAULT 0,
			runs INTEGER NOT NULL DEFAULT 0,
			home_runs INTEGER NOT NULL DEFAULT 0,
			rbi INTEGER NOT NULL DEFAULT 0,
			walks INTEGER NOT NULL DEFAULT 0,
			steals INTEGER NOT NULL DEFAULT 0,
			outs_pitched INTEGER NOT NULL DEFAULT 0,
			earned_runs INTEGER NOT NULL DEFAULT 0,
			strikeouts INTEGER NOT NULL DEFAULT 0,
			walks_allowed INTEGER NOT NULL DEFAULT 0,
			hits_allowed INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			saves INTEGER NOT NULL DEFAULT 0,
			quality_starts INTEGER NOT NULL DEFAULT 0,
			job_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (date, player_id)
		)`,

		// Change-detection ledger: last known content hash per entity
		`CREATE TABLE IF NOT EXISTS entity_fingerprints (
			entity_type TEXT NOT NULL,
			natural_key TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			last_checked_at TIMESTAMP NOT NULL,
			job_id TEXT NOT NULL,
			PRIMARY KEY (entity_type, natural_key)
		)`,

		// Append-only audit log of detected content changes
		`CREATE TABLE IF NOT EXISTS change_log (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			natural_key TEXT NOT NULL,
			old_hash TEXT NOT NULL,
			new_hash TEXT NOT NULL,
			changed_fields TEXT,
			detected_at TIMESTAMP NOT NULL,
			job_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_updated ON transactions (updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_roster_updated ON roster_entries (updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_updated ON player_stats (updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_updated ON change_log (updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_fingerprints_key ON entity_fingerprints (entity_type, natural_key)`,
	}
}
