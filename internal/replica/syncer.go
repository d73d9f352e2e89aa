// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package replica

import (
	"context"
	"strconv"
	"time"

	"github.com/dugoutproject/dugout/internal/ledger"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/models"
)

// Syncer runs one export/import cycle under a sync job record.
type Syncer struct {
	exporter *Exporter
	importer *Importer
	ledger   *ledger.Ledger
}

// NewSyncer wires an exporter and importer under the job ledger.
func NewSyncer(exporter *Exporter, importer *Importer, l *ledger.Ledger) *Syncer {
	return &Syncer{exporter: exporter, importer: importer, ledger: l}
}

// Run exports every row modified after the watermark and applies it to the
// replica. Partial success (skipped rows above rank 0) completes the job
// with the skip counts in its metadata; a rank-0 failure fails the job.
func (s *Syncer) Run(ctx context.Context, since time.Time) (*models.JobRecord, *ImportSummary, error) {
	job, err := s.ledger.Begin(ctx, models.JobSync, nil)
	if err != nil {
		return nil, nil, err
	}
	ctx = logging.ContextWithJobID(ctx, job.ID)

	batches, err := s.exporter.Export(ctx, since)
	if err != nil {
		_ = s.ledger.Fail(ctx, job, err, nil)
		return job, nil, err
	}

	exported := 0
	for _, b := range batches {
		exported += len(b.Rows)
	}

	summary, err := s.importer.Import(ctx, batches)
	if err != nil {
		_ = s.ledger.Fail(ctx, job, err, importMetadata(since, exported, summary))
		return job, summary, err
	}

	applied := 0
	for _, n := range summary.RowsApplied {
		applied += n
	}
	if perr := s.ledger.Progress(ctx, job, exported, applied, nil); perr != nil {
		logging.Ctx(ctx).Warn().Err(perr).Msg("Failed to record progress")
	}
	if err := s.ledger.Complete(ctx, job, importMetadata(since, exported, summary)); err != nil {
		return job, summary, err
	}

	logging.Ctx(ctx).Info().
		Int("rows_exported", exported).
		Int("rows_applied", applied).
		Int("rows_skipped", summary.Skipped()).
		Msg("Sync completed")
	return job, summary, nil
}

func importMetadata(since time.Time, exported int, summary *ImportSummary) map[string]string {
	md := map[string]string{
		"since":         since.UTC().Format(time.RFC3339),
		"rows_exported": strconv.Itoa(exported),
	}
	if summary != nil {
		applied := 0
		for _, n := range summary.RowsApplied {
			applied += n
		}
		md["rows_applied"] = strconv.Itoa(applied)
		if skipped := summary.Skipped(); skipped > 0 {
			md["rows_skipped"] = strconv.Itoa(skipped)
		}
	}
	return md
}
