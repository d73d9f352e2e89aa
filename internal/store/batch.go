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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dugoutproject/dugout/internal/detect"
	"github.com/dugoutproject/dugout/internal/models"
)

// FingerprintTouch refreshes the last-checked timestamp of a fingerprint
// whose content did not change.
type FingerprintTouch struct {
	EntityType string
	NaturalKey string
	At         time.Time
}

// DateBatch is the staged write set for one collection date. ApplyDateBatch
// commits it atomically: either the whole date lands or none of it does.
type DateBatch struct {
	Date  time.Time
	JobID string

	Transactions []*models.Transaction
	Rosters      []*models.Roster
	StatLines    []*models.StatLine

	Fingerprints []*detect.StoredFingerprint
	Touches      []FingerprintTouch
	Changes      []*models.ChangeRecord
}

// Empty reports whether the batch stages no writes at all.
func (b *DateBatch) Empty() bool {
	return len(b.Transactions) == 0 && len(b.Rosters) == 0 && len(b.StatLines) == 0 &&
		len(b.Fingerprints) == 0 && len(b.Touches) == 0 && len(b.Changes) == 0
}

// ApplyDateBatch writes one date's staged rows in a single transaction.
func (s *Store) ApplyDateBatch(ctx context.Context, batch *DateBatch) error {
	if batch.Empty() {
		return nil
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()

	for _, t := range batch.Transactions {
		if err := upsertTransaction(ctx, tx, t, batch.JobID, now); err != nil {
			return err
		}
	}
	for _, r := range batch.Rosters {
		if err := replaceRoster(ctx, tx, r, batch.JobID, now); err != nil {
			return err
		}
	}
	for _, line := range batch.StatLines {
		if err := upsertStatLine(ctx, tx, line, batch.JobID, now); err != nil {
			return err
		}
	}
	for _, fp := range batch.Fingerprints {
		if err := upsertFingerprint(ctx, tx, fp); err != nil {
			return err
		}
	}
	for _, touch := range batch.Touches {
		if err := touchFingerprint(ctx, tx, touch); err != nil {
			return err
		}
	}
	for _, change := range batch.Changes {
		if err := insertChange(ctx, tx, change, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit date batch %s: %w",
			batch.Date.Format(models.DateFormat), err)
	}
	return nil
}

func upsertTransaction(ctx context.Context, tx *sql.Tx, t *models.Transaction, jobID string, now time.Time) error {
	query := `INSERT INTO transactions (
		upstream_id, date, type, team_id, player_id, player_name, description, job_id, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (upstream_id) DO UPDATE SET
		date = excluded.date,
		type = excluded.type,
		team_id = excluded.team_id,
		player_id = excluded.player_id,
		player_name = excluded.player_name,
		description = excluded.description,
		job_id = excluded.job_id,
		updated_at = excluded.updated_at`

	_, err := tx.ExecContext(ctx, query,
		t.UpstreamID, t.Date, t.Type, t.TeamID, t.PlayerID, t.PlayerName, t.Description, jobID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", t.UpstreamID, err)
	}
	return nil
}

// replaceRoster swaps a team's roster-day wholesale. The roster-day is the
// classification unit, so a changed roster replaces every slot: players
// dropped by the user disappear from the primary rather than lingering.
func replaceRoster(ctx context.Context, tx *sql.Tx, r *models.Roster, jobID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM roster_entries WHERE date = ? AND team_id = ?`, r.Date, r.TeamID); err != nil {
		return fmt.Errorf("failed to clear roster %s: %w", r.NaturalKey(), err)
	}

	query := `INSERT INTO roster_entries (
		date, team_id, player_id, name, position, status, slot, job_id, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, e := range r.Entries {
		if _, err := tx.ExecContext(ctx, query,
			r.Date, r.TeamID, e.PlayerID, e.Name, e.Position, e.Status, e.Slot, jobID, now); err != nil {
			return fmt.Errorf("failed to insert roster entry %s/%s: %w", r.NaturalKey(), e.PlayerID, err)
		}
	}
	return nil
}

func upsertStatLine(ctx context.Context, tx *sql.Tx, line *models.StatLine, jobID string, now time.Time) error {
	query := `INSERT INTO player_stats (
		date, player_id, team_id,
		at_bats, hits, runs, home_runs, rbi, walks, steals,
		outs_pitched, earned_runs, strikeouts, walks_allowed, hits_allowed,
		wins, saves, quality_starts, job_id, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (date, player_id) DO UPDATE SET
		team_id = excluded.team_id,
		at_bats = excluded.at_bats,
		hits = excluded.hits,
		runs = excluded.runs,
		home_runs = excluded.home_runs,
		rbi = excluded.rbi,
		walks = excluded.walks,
		steals = excluded.steals,
		outs_pitched = excluded.outs_pitched,
		earned_runs = excluded.earned_runs,
		strikeouts = excluded.strikeouts,
		walks_allowed = excluded.walks_allowed,
		hits_allowed = excluded.hits_allowed,
		wins = excluded.wins,
		saves = excluded.saves,
		quality_starts = excluded.quality_starts,
		job_id = excluded.job_id,
		updated_at = excluded.updated_at`

	_, err := tx.ExecContext(ctx, query,
		line.Date, line.PlayerID, line.TeamID,
		line.AtBats, line.Hits, line.Runs, line.HomeRuns, line.RBI, line.Walks, line.Steals,
		line.OutsPitched, line.EarnedRuns, line.Strikeouts, line.WalksAllowed, line.HitsAllowed,
		line.Wins, line.Saves, line.QualityStarts, jobID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert stat line %s: %w", line.NaturalKey(), err)
	}
	return nil
}

func upsertFingerprint(ctx context.Context, tx *sql.Tx, fp *detect.StoredFingerprint) error {
	query := `INSERT INTO entity_fingerprints (
		entity_type, natural_key, content_hash, last_checked_at, job_id
	) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (entity_type, natural_key) DO UPDATE SET
		content_hash = excluded.content_hash,
		last_checked_at = excluded.last_checked_at,
		job_id = excluded.job_id`

	_, err := tx.ExecContext(ctx, query,
		fp.EntityType, fp.NaturalKey, fp.ContentHash, fp.LastCheckedAt, fp.JobID)
	if err != nil {
		return fmt.Errorf("failed to upsert fingerprint %s/%s: %w", fp.EntityType, fp.NaturalKey, err)
	}
	return nil
}

func touchFingerprint(ctx context.Context, tx *sql.Tx, touch FingerprintTouch) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE entity_fingerprints SET last_checked_at = ? WHERE entity_type = ? AND natural_key = ?`,
		touch.At, touch.EntityType, touch.NaturalKey)
	if err != nil {
		return fmt.Errorf("failed to touch fingerprint %s/%s: %w", touch.EntityType, touch.NaturalKey, err)
	}
	return nil
}

func insertChange(ctx context.Context, tx *sql.Tx, change *models.ChangeRecord, now time.Time) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	if change.DetectedAt.IsZero() {
		change.DetectedAt = now
	}

	var fields any
	if len(change.ChangedFields) > 0 {
		data, err := json.Marshal(change.ChangedFields)
		if err != nil {
			return fmt.Errorf("failed to marshal changed fields: %w", err)
		}
		fields = string(data)
	}

	query := `INSERT INTO change_log (
		id, entity_type, natural_key, old_hash, new_hash, changed_fields, detected_at, job_id, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		change.ID, change.EntityType, change.NaturalKey, change.OldHash, change.NewHash,
		fields, change.DetectedAt, change.JobID, now)
	if err != nil {
		return fmt.Errorf("failed to insert change record %s: %w", change.NaturalKey, err)
	}
	return nil
}

// GetFingerprint loads one fingerprint ledger row. Returns nil without
// error when the entity has never been observed.
func (s *Store) GetFingerprint(ctx context.Context, entityType, naturalKey string) (*detect.StoredFingerprint, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx,
		`SELECT entity_type, natural_key, content_hash, last_checked_at, job_id
		FROM entity_fingerprints WHERE entity_type = ? AND natural_key = ?`,
		entityType, naturalKey)

	fp := &detect.StoredFingerprint{}
	err := row.Scan(&fp.EntityType, &fp.NaturalKey, &fp.ContentHash, &fp.LastCheckedAt, &fp.JobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint %s/%s: %w", entityType, naturalKey, err)
	}
	return fp, nil
}

// HasFingerprintsForDate reports whether any fingerprint exists for the
// given entity type and date. Natural keys for dated entities start with
// the YYYY-MM-DD rendering of their date.
func (s *Store) HasFingerprintsForDate(ctx context.Context, entityType string, date time.Time) (bool, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	prefix := models.Midnight(date).Format(models.DateFormat) + "/%"
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entity_fingerprints WHERE entity_type = ? AND natural_key LIKE ?`,
		entityType, prefix).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count fingerprints for %s on %s: %w",
			entityType, date.Format(models.DateFormat), err)
	}
	return count > 0, nil
}

// GetRoster loads a team's roster-day from the primary, nil when absent.
// Used to compute changed-field diffs before a roster is replaced.
func (s *Store) GetRoster(ctx context.Context, date time.Time, teamID string) (*models.Roster, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT player_id, name, position, status, slot
		FROM roster_entries WHERE date = ? AND team_id = ? ORDER BY slot`,
		date, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster %s/%s: %w", date.Format(models.DateFormat), teamID, err)
	}
	defer rows.Close()

	roster := &models.Roster{Date: models.Midnight(date), TeamID: teamID}
	for rows.Next() {
		var e models.RosterEntry
		var name, position, status sql.NullString
		if err := rows.Scan(&e.PlayerID, &name, &position, &status, &e.Slot); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		e.Date = roster.Date
		e.TeamID = teamID
		e.Name = name.String
		e.Position = position.String
		e.Status = status.String
		roster.Entries = append(roster.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster entries: %w", err)
	}

	if len(roster.Entries) == 0 {
		return nil, nil
	}
	return roster, nil
}

// GetTransaction loads one transaction by upstream id, nil when absent.
func (s *Store) GetTransaction(ctx context.Context, upstreamID string) (*models.Transaction, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx,
		`SELECT upstream_id, date, type, team_id, player_id, player_name, description, job_id
		FROM transactions WHERE upstream_id = ?`, upstreamID)

	t := &models.Transaction{}
	var name, desc sql.NullString
	err := row.Scan(&t.UpstreamID, &t.Date, &t.Type, &t.TeamID, &t.PlayerID, &name, &desc, &t.JobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", upstreamID, err)
	}
	t.PlayerName = name.String
	t.Description = desc.String
	return t, nil
}

// GetStatLine loads one player's stat line, nil when absent.
func (s *Store) GetStatLine(ctx context.Context, date time.Time, playerID string) (*models.StatLine, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	row := s.conn.QueryRowContext(ctx,
		`SELECT date, player_id, team_id,
			at_bats, hits, runs, home_runs, rbi, walks, steals,
			outs_pitched, earned_runs, strikeouts, walks_allowed, hits_allowed,
			wins, saves, quality_starts, job_id
		FROM player_stats WHERE date = ? AND player_id = ?`,
		models.Midnight(date), playerID)

	line := &models.StatLine{}
	var teamID sql.NullString
	err := row.Scan(&line.Date, &line.PlayerID, &teamID,
		&line.AtBats, &line.Hits, &line.Runs, &line.HomeRuns, &line.RBI, &line.Walks, &line.Steals,
		&line.OutsPitched, &line.EarnedRuns, &line.Strikeouts, &line.WalksAllowed, &line.HitsAllowed,
		&line.Wins, &line.Saves, &line.QualityStarts, &line.JobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stat line %s/%s: %w", date.Format(models.DateFormat), playerID, err)
	}
	line.TeamID = teamID.String
	return line, nil
}

// RecentChanges returns the newest change-log entries, newest first.
func (s *Store) RecentChanges(ctx context.Context, limit int) ([]*models.ChangeRecord, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, entity_type, natural_key, old_hash, new_hash, changed_fields, detected_at, job_id
		FROM change_log ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	var changes []*models.ChangeRecord
	for rows.Next() {
		c := &models.ChangeRecord{}
		var fields sql.NullString
		if err := rows.Scan(&c.ID, &c.EntityType, &c.NaturalKey, &c.OldHash, &c.NewHash,
			&fields, &c.DetectedAt, &c.JobID); err != nil {
			return nil, fmt.Errorf("failed to scan change record: %w", err)
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &c.ChangedFields); err != nil {
				return nil, fmt.Errorf("corrupt changed_fields on %s: %w", c.NaturalKey, err)
			}
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change log: %w", err)
	}
	return changes, nil
}

// CountRows returns the row count of a table. Test and diagnostics helper.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	if !validTableName(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// validTableName guards identifier interpolation in helper queries.
func validTableName(table string) bool {
	switch strings.ToLower(table) {
	case "jobs", "transactions", "roster_entries", "player_stats", "entity_fingerprints", "change_log":
		return true
	default:
		return false
	}
}
