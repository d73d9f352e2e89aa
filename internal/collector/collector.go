// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package collector orchestrates collection runs.
//
// A run walks its date range chronologically. For each date it fetches
// transactions, one roster per configured team, and the day's stat lines
// through the rate-limited upstream client, classifies every fetched entity
// against the fingerprint ledger, and commits the date's staged writes as a
// single transaction. A failed date is logged into the job metadata and
// skipped; the run aborts only on a permanent upstream failure. Because
// dates commit in order, a failure partway through leaves a clean prefix of
// fully-committed dates and the run is resumable with a narrowed range.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/detect"
	"github.com/dugoutproject/dugout/internal/ledger"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/metrics"
	"github.com/dugoutproject/dugout/internal/models"
	"github.com/dugoutproject/dugout/internal/store"
	"github.com/dugoutproject/dugout/internal/upstream"
)

// Collector runs date-range collections against the upstream API.
type Collector struct {
	fetcher upstream.Fetcher
	store   *store.Store
	ledger  *ledger.Ledger
	windows detect.Windows
	teams   []string

	// now is swappable for window-policy tests.
	now func() time.Time
}

// New builds a collector. The fetcher is injected so tests can run without
// a network; production wiring passes the rate-limited client, usually
// wrapped in the circuit breaker.
func New(fetcher upstream.Fetcher, s *store.Store, l *ledger.Ledger, cfg *config.CollectorConfig) *Collector {
	return &Collector{
		fetcher: fetcher,
		store:   s,
		ledger:  l,
		windows: detect.Windows{
			ForceRefresh: cfg.ForceRefreshWindow(),
			Correction:   cfg.CorrectionWindow(),
		},
		teams: cfg.Teams,
		now:   time.Now,
	}
}

// runTotals accumulates counters across the date loop.
type runTotals struct {
	seen    int
	written int
	changes int
	skipped []string
}

// Run executes one collection over the range under a single job record.
// The returned record is always non-nil once the ledger entry opens, so
// callers can print the job id even on failure.
func (c *Collector) Run(ctx context.Context, dateRange models.DateRange) (*models.JobRecord, error) {
	job, err := c.ledger.Begin(ctx, models.JobCollect, &dateRange)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithJobID(ctx, job.ID)

	logging.Ctx(ctx).Info().
		Str("range", dateRange.String()).
		Int("days", dateRange.Days()).
		Msg("Collection started")

	var totals runTotals
	dates := dateRange.Dates()
	for i, date := range dates {
		if ctx.Err() != nil {
			err := fmt.Errorf("collection interrupted: %w", ctx.Err())
			_ = c.ledger.Fail(ctx, job, err, totals.metadata())
			return job, err
		}

		if err := c.collectDate(ctx, job, date, &totals); err != nil {
			if upstream.IsPermanent(err) {
				// Bad credentials or a contract violation: every later
				// date would fail identically. Abort the run.
				failErr := fmt.Errorf("permanent upstream failure on %s: %w",
					date.Format(models.DateFormat), err)
				_ = c.ledger.Fail(ctx, job, failErr, totals.metadata())
				return job, failErr
			}

			totals.skipped = append(totals.skipped, date.Format(models.DateFormat))
			metrics.DatesSkipped.WithLabelValues(string(models.JobCollect)).Inc()
			logging.Ctx(ctx).Warn().Err(err).
				Str("date", date.Format(models.DateFormat)).
				Msg("Date skipped, continuing run")
		}

		pct := (i + 1) * 100 / len(dates)
		if err := c.ledger.Progress(ctx, job, totals.seen, totals.written, &pct); err != nil {
			// Progress is bookkeeping; losing one update is not worth
			// abandoning the collection.
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to record progress")
		}
	}

	if err := c.ledger.Complete(ctx, job, totals.metadata()); err != nil {
		return job, err
	}

	logging.Ctx(ctx).Info().
		Int("records_seen", totals.seen).
		Int("records_written", totals.written).
		Int("changes", totals.changes).
		Int("dates_skipped", len(totals.skipped)).
		Msg("Collection completed")
	return job, nil
}

// RunParallel splits the range into contiguous sub-ranges and collects them
// concurrently, one worker and one job record per sub-range. Workers never
// share a job id, so ledger ownership stays unambiguous; the shared rate
// limiter keeps aggregate upstream pressure bounded.
func (c *Collector) RunParallel(ctx context.Context, dateRange models.DateRange, workers int) ([]*models.JobRecord, error) {
	subRanges := dateRange.Split(workers)
	if len(subRanges) == 1 {
		job, err := c.Run(ctx, subRanges[0])
		if job == nil {
			return nil, err
		}
		return []*models.JobRecord{job}, err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		jobs []*models.JobRecord
		errs []error
	)
	for _, sub := range subRanges {
		wg.Add(1)
		go func(sub models.DateRange) {
			defer wg.Done()
			job, err := c.Run(ctx, sub)
			mu.Lock()
			defer mu.Unlock()
			if job != nil {
				jobs = append(jobs, job)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("range %s: %w", sub, err))
			}
		}(sub)
	}
	wg.Wait()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].RangeStart != nil && jobs[j].RangeStart != nil &&
			jobs[i].RangeStart.Before(*jobs[j].RangeStart)
	})
	return jobs, errors.Join(errs...)
}

// collectDate fetches, classifies, and commits one date.
func (c *Collector) collectDate(ctx context.Context, job *models.JobRecord, date time.Time, totals *runTotals) error {
	batch := &store.DateBatch{Date: date, JobID: job.ID}
	now := c.now()

	entities, err := c.fetchDate(ctx, date, now)
	if err != nil {
		return err
	}

	for _, e := range entities {
		if err := c.classify(ctx, batch, e, totals); err != nil {
			return err
		}
	}

	if err := c.store.ApplyDateBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to commit date %s: %w", date.Format(models.DateFormat), err)
	}
	return nil
}

// fetchDate issues the upstream calls for one date. Rosters and
// transactions are always fetched for a requested date; stat lines outside
// both policy windows are immutable and skipped once fingerprinted.
func (c *Collector) fetchDate(ctx context.Context, date time.Time, now time.Time) ([]models.Fingerprintable, error) {
	var entities []models.Fingerprintable

	var txns transactionsPayload
	if err := c.fetcher.Fetch(ctx, endpointTransactions, dateParams(date), &txns); err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	for _, p := range txns.Transactions {
		t, err := p.toModel(date)
		if err != nil {
			return nil, upstream.NewPermanentError(endpointTransactions, err)
		}
		entities = append(entities, t)
	}

	for _, teamID := range c.teams {
		var payload rosterPayload
		endpoint := endpointRoster(teamID)
		if err := c.fetcher.Fetch(ctx, endpoint, dateParams(date), &payload); err != nil {
			return nil, fmt.Errorf("fetch roster %s: %w", teamID, err)
		}
		entities = append(entities, payload.toModel(date, teamID))
	}

	fetchStats, err := c.shouldFetchStats(ctx, date, now)
	if err != nil {
		return nil, err
	}
	if fetchStats {
		var stats statsPayload
		if err := c.fetcher.Fetch(ctx, endpointStats, dateParams(date), &stats); err != nil {
			return nil, fmt.Errorf("fetch stats: %w", err)
		}
		for _, p := range stats.Lines {
			line, err := p.toModel(date)
			if err != nil {
				return nil, upstream.NewPermanentError(endpointStats, err)
			}
			entities = append(entities, line)
		}
	} else {
		logging.Ctx(ctx).Debug().
			Str("date", date.Format(models.DateFormat)).
			Msg("Stat lines outside correction window, fetch skipped")
	}

	return entities, nil
}

func (c *Collector) shouldFetchStats(ctx context.Context, date, now time.Time) (bool, error) {
	if c.windows.ShouldFetch(models.EntityStatLine, date, now, true) {
		return true, nil
	}
	fingerprinted, err := c.store.HasFingerprintsForDate(ctx, models.EntityStatLine, date)
	if err != nil {
		return false, err
	}
	return c.windows.ShouldFetch(models.EntityStatLine, date, now, fingerprinted), nil
}

// classify runs one fetched entity through the change detector and stages
// the resulting writes.
func (c *Collector) classify(ctx context.Context, batch *store.DateBatch, e models.Fingerprintable, totals *runTotals) error {
	totals.seen++

	hash, err := detect.Fingerprint(e)
	if err != nil {
		return err
	}
	stored, err := c.store.GetFingerprint(ctx, e.EntityType(), e.NaturalKey())
	if err != nil {
		return err
	}

	result := detect.Classify(hash, stored)
	metrics.RecordsClassified.WithLabelValues(e.EntityType(), result.String()).Inc()

	switch result {
	case detect.Unchanged:
		batch.Touches = append(batch.Touches, store.FingerprintTouch{
			EntityType: e.EntityType(),
			NaturalKey: e.NaturalKey(),
			At:         c.now().UTC(),
		})
		return nil

	case detect.Changed:
		changed, err := c.changedFields(ctx, e)
		if err != nil {
			return err
		}
		batch.Changes = append(batch.Changes, &models.ChangeRecord{
			EntityType:    e.EntityType(),
			NaturalKey:    e.NaturalKey(),
			OldHash:       stored.ContentHash,
			NewHash:       hash,
			ChangedFields: changed,
			JobID:         batch.JobID,
		})
		metrics.ChangeRecords.WithLabelValues(e.EntityType()).Inc()
		totals.changes++
		logging.Ctx(ctx).Info().
			Str("entity_type", e.EntityType()).
			Str("natural_key", e.NaturalKey()).
			Strs("changed_fields", changed).
			Msg("Change detected")
	}

	// New and Changed both land the entity and its fresh fingerprint.
	c.stage(batch, e)
	batch.Fingerprints = append(batch.Fingerprints, &detect.StoredFingerprint{
		EntityType:    e.EntityType(),
		NaturalKey:    e.NaturalKey(),
		ContentHash:   hash,
		LastCheckedAt: c.now().UTC(),
		JobID:         batch.JobID,
	})
	totals.written++
	return nil
}

// stage appends an entity to the right slice of the date batch.
func (c *Collector) stage(batch *store.DateBatch, e models.Fingerprintable) {
	switch v := e.(type) {
	case *models.Transaction:
		batch.Transactions = append(batch.Transactions, v)
	case *models.Roster:
		batch.Rosters = append(batch.Rosters, v)
	case *models.StatLine:
		batch.StatLines = append(batch.StatLines, v)
	}
}

// changedFields loads the previously stored entity and diffs its field set
// against the fresh one, producing the categorized diff on the change
// record. A missing previous row (fingerprint present, data row gone)
// yields an empty diff rather than an error.
func (c *Collector) changedFields(ctx context.Context, e models.Fingerprintable) ([]string, error) {
	var (
		previous models.Fingerprintable
		err      error
	)
	switch v := e.(type) {
	case *models.Transaction:
		var t *models.Transaction
		t, err = c.store.GetTransaction(ctx, v.UpstreamID)
		if t != nil {
			previous = t
		}
	case *models.Roster:
		var r *models.Roster
		r, err = c.store.GetRoster(ctx, v.Date, v.TeamID)
		if r != nil {
			previous = r
		}
	case *models.StatLine:
		var l *models.StatLine
		l, err = c.store.GetStatLine(ctx, v.Date, v.PlayerID)
		if l != nil {
			previous = l
		}
	}
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, nil
	}
	return detect.DiffFields(previous.FingerprintFields(), e.FingerprintFields()), nil
}

// metadata renders run totals for the terminal ledger transition.
func (t *runTotals) metadata() map[string]string {
	md := map[string]string{
		"records_seen":    strconv.Itoa(t.seen),
		"records_written": strconv.Itoa(t.written),
		"changes":         strconv.Itoa(t.changes),
	}
	if len(t.skipped) > 0 {
		md["dates_skipped"] = strings.Join(t.skipped, ",")
	}
	return md
}
