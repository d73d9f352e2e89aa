// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package replica

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/metrics"
)

// ErrJobBatchFailed marks a failed rank-0 application. Every later rank may
// reference the missing job rows, so the import aborts rather than write
// rows with unresolvable job ids.
var ErrJobBatchFailed = errors.New("job batch failed to apply")

// ImportSummary reports what an import accomplished. Partial success on
// ranks above zero is a summary matter, not a hard failure.
type ImportSummary struct {
	BatchesApplied int
	RowsApplied    map[string]int
	RowsSkipped    map[string]int
}

// Skipped returns the total number of rows dropped during fallback.
func (s *ImportSummary) Skipped() int {
	total := 0
	for _, n := range s.RowsSkipped {
		total += n
	}
	return total
}

// Importer applies rank-ordered batches to the replica.
type Importer struct {
	executor Executor
}

// NewImporter builds an importer over an executor, normally a RemoteClient.
func NewImporter(executor Executor) *Importer {
	return &Importer{executor: executor}
}

// Import applies batches strictly in ascending rank order. A batch whose
// bulk application fails degrades to per-row application, so one malformed
// row cannot block its table; individually failing rows are logged and
// skipped. Only a rank-0 failure aborts: subsequent ranks depend on the job
// rows it carries.
func (imp *Importer) Import(ctx context.Context, batches []SyncBatch) (*ImportSummary, error) {
	ordered := make([]SyncBatch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	summary := &ImportSummary{
		RowsApplied: make(map[string]int),
		RowsSkipped: make(map[string]int),
	}

	for _, batch := range ordered {
		applied, skipped, err := imp.applyBatch(ctx, batch)
		summary.RowsApplied[batch.Table] += applied
		summary.RowsSkipped[batch.Table] += skipped
		if applied > 0 || skipped == 0 {
			summary.BatchesApplied++
		}

		if batch.Rank == 0 && (err != nil || skipped > 0) {
			if err == nil {
				err = fmt.Errorf("%d job rows skipped", skipped)
			}
			return summary, fmt.Errorf("%w: %v", ErrJobBatchFailed, err)
		}
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("table", batch.Table).
				Int("rank", batch.Rank).
				Msg("Batch partially applied, continuing import")
		}
	}
	return summary, nil
}

// applyBatch tries the whole batch first and falls back to one statement
// per row on failure.
func (imp *Importer) applyBatch(ctx context.Context, batch SyncBatch) (applied, skipped int, err error) {
	stmts := batch.statements()
	if len(stmts) == 0 {
		return 0, 0, nil
	}

	bulkErr := imp.executor.Execute(ctx, stmts)
	if bulkErr == nil {
		metrics.SyncBatchesApplied.WithLabelValues(batch.Table, "batch").Inc()
		metrics.SyncRowsApplied.WithLabelValues(batch.Table).Add(float64(len(stmts)))
		return len(stmts), 0, nil
	}
	logging.Ctx(ctx).Warn().Err(bulkErr).
		Str("table", batch.Table).
		Int("rows", len(stmts)).
		Msg("Bulk application failed, degrading to per-row")

	var lastErr error
	for i, stmt := range stmts {
		if rowErr := imp.executor.Execute(ctx, []Statement{stmt}); rowErr != nil {
			skipped++
			lastErr = rowErr
			metrics.SyncRowsSkipped.WithLabelValues(batch.Table).Inc()
			logging.Ctx(ctx).Warn().Err(rowErr).
				Str("table", batch.Table).
				Int("row", i).
				Msg("Row skipped during fallback")
			continue
		}
		applied++
	}
	metrics.SyncBatchesApplied.WithLabelValues(batch.Table, "row").Inc()
	metrics.SyncRowsApplied.WithLabelValues(batch.Table).Add(float64(applied))

	if skipped > 0 {
		return applied, skipped, fmt.Errorf("skipped %d of %d rows: last error: %w",
			skipped, len(stmts), lastErr)
	}
	return applied, 0, nil
}

// statements renders the batch as idempotent insert-or-replace writes. The
// importer never deletes and never issues plain inserts: the same window is
// exported and re-applied many times by design.
func (b SyncBatch) statements() []Statement {
	if len(b.Rows) == 0 {
		return nil
	}
	sql := upsertSQL(b.Table, b.Columns)
	stmts := make([]Statement, 0, len(b.Rows))
	for _, row := range b.Rows {
		stmts = append(stmts, Statement{SQL: sql, Params: row})
	}
	return stmts
}

func upsertSQL(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)
}
