// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package ledger manages JobRecord lifecycles on top of the store.
//
// Every collection and sync run begins by opening a ledger entry and ends
// with exactly one terminal transition. The terminal transition is enforced
// single-shot by the store, so a crashed process leaves its entry in
// running state forever; OrphanedJobs surfaces those rows for manual
// recovery.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/metrics"
	"github.com/dugoutproject/dugout/internal/models"
	"github.com/dugoutproject/dugout/internal/store"
)

// jobIDTimeFormat keeps ids sortable by start time.
const jobIDTimeFormat = "20060102150405"

// Ledger opens, advances, and closes job records.
type Ledger struct {
	store *store.Store
	env   config.Environment

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Ledger bound to an environment. Job ids carry the
// environment so ledgers replicated from different deployments never
// collide.
func New(s *store.Store, env config.Environment) *Ledger {
	return &Ledger{store: s, env: env, now: time.Now}
}

// Begin opens a running job record and persists it. The optional date
// range records what the run intends to cover.
func (l *Ledger) Begin(ctx context.Context, jobType models.JobType, dateRange *models.DateRange) (*models.JobRecord, error) {
	started := l.now().UTC()

	job := &models.JobRecord{
		ID:          l.newJobID(jobType, started),
		Type:        jobType,
		Environment: string(l.env),
		Status:      models.JobRunning,
		StartedAt:   started,
	}
	if dateRange != nil {
		start, end := dateRange.Start, dateRange.End
		job.RangeStart = &start
		job.RangeEnd = &end
	}

	if err := l.store.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to begin %s job: %w", jobType, err)
	}

	logging.Info().
		Str("job_id", job.ID).
		Str("job_type", string(jobType)).
		Str("environment", job.Environment).
		Msg("Job started")
	return job, nil
}

// Progress persists updated counters and mirrors them onto the record.
func (l *Ledger) Progress(ctx context.Context, job *models.JobRecord, seen, written int, pct *int) error {
	if err := l.store.UpdateJobProgress(ctx, job.ID, seen, written, pct); err != nil {
		return err
	}
	job.RecordsSeen = seen
	job.RecordsWritten = written
	job.ProgressPct = pct
	return nil
}

// Complete marks the job completed. Exactly one of Complete or Fail may
// succeed per job.
func (l *Ledger) Complete(ctx context.Context, job *models.JobRecord, metadata map[string]string) error {
	return l.finish(ctx, job, models.JobCompleted, "", metadata)
}

// Fail marks the job failed, recording the cause.
func (l *Ledger) Fail(ctx context.Context, job *models.JobRecord, cause error, metadata map[string]string) error {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return l.finish(ctx, job, models.JobFailed, msg, metadata)
}

func (l *Ledger) finish(ctx context.Context, job *models.JobRecord, status models.JobStatus, errMsg string, metadata map[string]string) error {
	if err := l.store.FinishJob(ctx, job.ID, status, errMsg, metadata); err != nil {
		return err
	}

	ended := l.now().UTC()
	job.Status = status
	job.EndedAt = &ended
	job.Error = errMsg
	if metadata != nil {
		job.Metadata = metadata
	}

	duration := ended.Sub(job.StartedAt)
	metrics.ObserveJob(string(job.Type), string(status), duration)

	event := logging.Info()
	if status == models.JobFailed {
		event = logging.Error()
	}
	event.
		Str("job_id", job.ID).
		Str("status", string(status)).
		Dur("duration", duration).
		Int("records_seen", job.RecordsSeen).
		Int("records_written", job.RecordsWritten).
		Msg("Job finished")
	return nil
}

// Get loads one job record by id.
func (l *Ledger) Get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	return l.store.GetJob(ctx, jobID)
}

// Recent returns the most recently started jobs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*models.JobRecord, error) {
	return l.store.RecentJobs(ctx, limit)
}

// Orphaned returns running jobs started before the cutoff. These are runs
// whose process died without a terminal transition.
func (l *Ledger) Orphaned(ctx context.Context, olderThan time.Time) ([]*models.JobRecord, error) {
	return l.store.OrphanedJobs(ctx, olderThan)
}

// newJobID composes "<type>-<environment>-<utc timestamp>-<suffix>". The
// random suffix disambiguates parallel workers begun in the same second.
func (l *Ledger) newJobID(jobType models.JobType, started time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		jobType, l.env, started.Format(jobIDTimeFormat), randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to a timestamp-derived suffix.
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xffff)
	}
	return hex.EncodeToString(buf)
}
