// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package replica

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/store"
)

// SyncBatch is one table's worth of rows destined for the replica, tagged
// with its dependency rank. Batches sort ascending by rank; a batch is
// never applied before every batch of a lower rank.
type SyncBatch struct {
	Table   string
	Rank    int
	Columns []string
	Rows    [][]any
}

// Exporter pulls modified rows out of the primary store.
type Exporter struct {
	store *store.Store
}

// NewExporter builds an exporter over the primary store.
func NewExporter(s *store.Store) *Exporter {
	return &Exporter{store: s}
}

// Export selects every replicated row modified after the watermark and
// groups the result into rank-ordered batches. The jobs batch is built from
// two sources: jobs modified since the watermark, and the closure of job
// ids referenced by the exported data rows. The closure guarantees the
// replica can always resolve a data row's job_id, even when the owning job
// finished long before the watermark.
//
// Overlapping export windows are the norm: the same rows may be exported
// and re-applied many times, which is safe because the importer only issues
// idempotent statements.
func (e *Exporter) Export(ctx context.Context, since time.Time) ([]SyncBatch, error) {
	var batches []SyncBatch

	referenced := make(map[string]bool)
	for _, table := range ReplicatedTables() {
		if table == "jobs" {
			continue
		}
		rows, err := e.store.ExportRowsSince(ctx, table, since)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}

		columns, err := store.ExportColumns(table)
		if err != nil {
			return nil, err
		}
		rank, err := DependencyRank(table)
		if err != nil {
			return nil, err
		}
		batches = append(batches, SyncBatch{Table: table, Rank: rank, Columns: columns, Rows: rows})

		jobIdx := columnIndex(columns, "job_id")
		for _, row := range rows {
			if id, ok := row[jobIdx].(string); ok {
				referenced[id] = true
			}
		}
	}

	jobRows, err := e.exportJobs(ctx, since, referenced)
	if err != nil {
		return nil, err
	}
	if len(jobRows) > 0 {
		columns, _ := store.ExportColumns("jobs")
		batches = append(batches, SyncBatch{Table: "jobs", Rank: 0, Columns: columns, Rows: jobRows})
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].Rank != batches[j].Rank {
			return batches[i].Rank < batches[j].Rank
		}
		return batches[i].Table < batches[j].Table
	})

	total := 0
	for _, b := range batches {
		total += len(b.Rows)
	}
	logging.Ctx(ctx).Info().
		Time("since", since).
		Int("batches", len(batches)).
		Int("rows", total).
		Msg("Export assembled")
	return batches, nil
}

// exportJobs merges watermark-selected job rows with the referenced-id
// closure, deduplicated by id.
func (e *Exporter) exportJobs(ctx context.Context, since time.Time, referenced map[string]bool) ([][]any, error) {
	rows, err := e.store.ExportRowsSince(ctx, "jobs", since)
	if err != nil {
		return nil, err
	}

	columns, err := store.ExportColumns("jobs")
	if err != nil {
		return nil, err
	}
	idIdx := columnIndex(columns, "id")

	missing := make(map[string]bool, len(referenced))
	for id := range referenced {
		missing[id] = true
	}
	for _, row := range rows {
		if id, ok := row[idIdx].(string); ok {
			delete(missing, id)
		}
	}

	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		closure, err := e.store.ExportJobsByID(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to close over referenced jobs: %w", err)
		}
		rows = append(rows, closure...)
	}
	return rows, nil
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
