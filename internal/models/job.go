// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobType names the kinds of tracked runs.
type JobType string

const (
	// JobCollect is an upstream collection run.
	JobCollect JobType = "collect"

	// JobSync is a primary-to-replica synchronization run.
	JobSync JobType = "sync"
)

// JobStatus is the lifecycle state of a JobRecord.
type JobStatus string

const (
	// JobRunning is the initial state, set by begin.
	JobRunning JobStatus = "running"

	// JobCompleted and JobFailed are terminal and mutually exclusive.
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobRecord is the ledger entry for one collection or sync execution.
// Every row written during the run carries this record's ID.
type JobRecord struct {
	// ID is composed from job type, environment, and start time, so ids
	// sort chronologically and are readable in an incident.
	ID          string    `json:"id"`
	Type        JobType   `json:"type"`
	Environment string    `json:"environment"`
	Status      JobStatus `json:"status"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	RangeStart *time.Time `json:"range_start,omitempty"`
	RangeEnd   *time.Time `json:"range_end,omitempty"`

	RecordsSeen    int  `json:"records_seen"`
	RecordsWritten int  `json:"records_written"`
	ProgressPct    *int `json:"progress_pct,omitempty"` // 0-100 when reported

	Metadata map[string]string `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ChangeRecord is one append-only audit entry for a detected content
// change. Never mutated, never deleted; consumed by alerting and audit,
// not by control flow.
type ChangeRecord struct {
	ID            uuid.UUID `json:"id"`
	EntityType    string    `json:"entity_type"`
	NaturalKey    string    `json:"natural_key"`
	OldHash       string    `json:"old_hash"`
	NewHash       string    `json:"new_hash"`
	ChangedFields []string  `json:"changed_fields,omitempty"`
	DetectedAt    time.Time `json:"detected_at"`
	JobID         string    `json:"job_id"`
}
