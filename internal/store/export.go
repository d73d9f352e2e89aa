// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// exportSpec describes how one replicated table is read for export: the
// column list in stable order and the watermark predicate.
type exportSpec struct {
	columns []string
}

// exportSpecs covers every replicated table. entity_fingerprints is
// deliberately absent: the ledger is collector-local state and the replica
// runs no change detection of its own.
var exportSpecs = map[string]exportSpec{
	"jobs": {columns: []string{
		"id", "job_type", "environment", "status", "started_at", "ended_at",
		"range_start", "range_end", "records_seen", "records_written",
		"progress_pct", "metadata", "error", "updated_at",
	}},
	"transactions": {columns: []string{
		"upstream_id", "date", "type", "team_id", "player_id",
		"player_name", "description", "job_id", "updated_at",
	}},
	"roster_entries": {columns: []string{
		"date", "team_id", "player_id", "name", "position", "status",
		"slot", "job_id", "updated_at",
	}},
	"player_stats": {columns: []string{
		"date", "player_id", "team_id",
		"at_bats", "hits", "runs", "home_runs", "rbi", "walks", "steals",
		"outs_pitched", "earned_runs", "strikeouts", "walks_allowed",
		"hits_allowed", "wins", "saves", "quality_starts",
		"job_id", "updated_at",
	}},
	"change_log": {columns: []string{
		"id", "entity_type", "natural_key", "old_hash", "new_hash",
		"changed_fields", "detected_at", "job_id", "updated_at",
	}},
}

// ExportColumns returns the stable column order of a replicated table.
func ExportColumns(table string) ([]string, error) {
	spec, ok := exportSpecs[table]
	if !ok {
		return nil, fmt.Errorf("table %q is not replicated", table)
	}
	return spec.columns, nil
}

// ExportRowsSince reads every row of a replicated table whose updated_at
// is strictly after the watermark, oldest first. Rows come back as
// positional values matching ExportColumns.
func (s *Store) ExportRowsSince(ctx context.Context, table string, since time.Time) ([][]any, error) {
	spec, ok := exportSpecs[table]
	if !ok {
		return nil, fmt.Errorf("table %q is not replicated", table)
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE updated_at > ? ORDER BY updated_at`,
		strings.Join(spec.columns, ", "), table)

	rows, err := s.conn.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, len(spec.columns))
		ptrs := make([]any, len(spec.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s export row: %w", table, err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s export: %w", table, err)
	}
	return out, nil
}

// ReferencedJobIDs returns the sorted set of job ids referenced by rows of
// the data tables changed since the watermark. Jobs exported by id closure
// rather than by their own watermark: a replica must never receive a row
// whose job_id it cannot resolve, even when the owning job itself predates
// the watermark.
func (s *Store) ReferencedJobIDs(ctx context.Context, since time.Time) ([]string, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	ids := make(map[string]struct{})
	for table := range exportSpecs {
		if table == "jobs" {
			continue
		}
		query := fmt.Sprintf(`SELECT DISTINCT job_id FROM %s WHERE updated_at > ?`, table)
		rows, err := s.conn.QueryContext(ctx, query, since.UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to collect job ids from %s: %w", table, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				closeRows(rows)
				return nil, fmt.Errorf("failed to scan job id from %s: %w", table, err)
			}
			ids[id] = struct{}{}
		}
		err = rows.Err()
		closeRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to iterate job ids from %s: %w", table, err)
		}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return sorted, nil
}

// ExportJobsByID reads full job rows for the given ids, in positional
// export order. Unknown ids are an error: a dangling job_id on a data row
// means the ledger has been tampered with.
func (s *Store) ExportJobsByID(ctx context.Context, ids []string) ([][]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	spec := exportSpecs["jobs"]
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id IN (%s) ORDER BY started_at`,
		strings.Join(spec.columns, ", "), placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export jobs: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, len(spec.columns))
		ptrs := make([]any, len(spec.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan job export row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job export: %w", err)
	}

	if len(out) != len(ids) {
		return nil, fmt.Errorf("job export resolved %d of %d referenced ids", len(out), len(ids))
	}
	return out, nil
}

func closeRows(rows interface{ Close() error }) {
	_ = rows.Close()
}
