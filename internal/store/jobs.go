// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/models"
)

// ErrJobNotFound is returned when a job id does not exist in the ledger.
var ErrJobNotFound = errors.New("job not found")

// ErrJobNotRunning is returned when a terminal transition targets a job
// that is already completed or failed.
var ErrJobNotRunning = errors.New("job is not running")

// InsertJob writes a new ledger row. The record must be in running state.
func (s *Store) InsertJob(ctx context.Context, job *models.JobRecord) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	metadata, err := marshalMetadata(job.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO jobs (
		id, job_type, environment, status, started_at, ended_at,
		range_start, range_end, records_seen, records_written,
		progress_pct, metadata, error, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.conn.ExecContext(ctx, query,
		job.ID, string(job.Type), job.Environment, string(job.Status),
		job.StartedAt, job.EndedAt, job.RangeStart, job.RangeEnd,
		job.RecordsSeen, job.RecordsWritten, job.ProgressPct,
		metadata, nullableString(job.Error), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobProgress updates counters on a running job. Safe to call
// repeatedly with monotonically increasing values.
func (s *Store) UpdateJobProgress(ctx context.Context, jobID string, seen, written int, pct *int) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `UPDATE jobs
		SET records_seen = ?, records_written = ?, progress_pct = ?, updated_at = ?
		WHERE id = ?`

	res, err := s.conn.ExecContext(ctx, query, seen, written, pct, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress %s: %w", jobID, err)
	}
	return requireRow(res, jobID)
}

// UpdateJobMetadata replaces the metadata map on a job row.
func (s *Store) UpdateJobMetadata(ctx context.Context, jobID string, metadata map[string]string) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	data, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	res, err := s.conn.ExecContext(ctx,
		`UPDATE jobs SET metadata = ?, updated_at = ? WHERE id = ?`,
		data, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job metadata %s: %w", jobID, err)
	}
	return requireRow(res, jobID)
}

// FinishJob performs a terminal transition. The guard on status makes the
// transition single-shot: a second terminal call on the same job finds no
// running row and gets ErrJobNotRunning.
func (s *Store) FinishJob(ctx context.Context, jobID string, status models.JobStatus, errMsg string, metadata map[string]string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish job %s: status %q is not terminal", jobID, status)
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	data, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `UPDATE jobs
		SET status = ?, ended_at = ?, error = ?, metadata = COALESCE(?, metadata), updated_at = ?
		WHERE id = ? AND status = ?`

	res, err := s.conn.ExecContext(ctx, query,
		string(status), now, nullableString(errMsg), data, now,
		jobID, string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", jobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", jobID, err)
	}
	if affected == 0 {
		// Distinguish a missing job from a double terminal transition.
		if _, gerr := s.GetJob(ctx, jobID); gerr != nil {
			return gerr
		}
		return fmt.Errorf("finish job %s: %w", jobID, ErrJobNotRunning)
	}
	return nil
}

// GetJob loads one ledger row.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.JobRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return job, nil
}

// RecentJobs returns the most recently started jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]*models.JobRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// OrphanedJobs returns running jobs whose start time is older than the
// cutoff. A process killed mid-run leaves its JobRecord in running state
// permanently; these rows are the detectable anomaly, recovered manually.
func (s *Store) OrphanedJobs(ctx context.Context, olderThan time.Time) ([]*models.JobRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND started_at < ? ORDER BY started_at`,
		string(models.JobRunning), olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

const jobColumns = `id, job_type, environment, status, started_at, ended_at,
	range_start, range_end, records_seen, records_written, progress_pct, metadata, error`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.JobRecord, error) {
	job := &models.JobRecord{}
	var (
		jobType, status   string
		metadata, errText sql.NullString
	)

	err := row.Scan(
		&job.ID, &jobType, &job.Environment, &status, &job.StartedAt, &job.EndedAt,
		&job.RangeStart, &job.RangeEnd, &job.RecordsSeen, &job.RecordsWritten,
		&job.ProgressPct, &metadata, &errText,
	)
	if err != nil {
		return nil, err
	}

	job.Type = models.JobType(jobType)
	job.Status = models.JobStatus(status)
	job.Error = errText.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt job metadata: %w", err)
		}
	}
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*models.JobRecord, error) {
	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// marshalMetadata renders a metadata map as JSON text, nil for empty maps.
func marshalMetadata(metadata map[string]string) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job metadata: %w", err)
	}
	return string(data), nil
}

// nullableString maps empty strings to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-row update into ErrJobNotFound.
func requireRow(res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for job %s: %w", jobID, err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return nil
}
