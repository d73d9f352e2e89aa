// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package detect

import (
	"time"

	"github.com/dugoutproject/dugout/internal/models"
)

// Windows holds the refetch policy the collector applies around the
// detector. The detector itself never consults these: classification is a
// pure hash comparison, and the windows only decide whether a fetch is
// issued at all.
//
// Both lengths are deployment policy, not architecture. The upstream
// source is known to edit very recent data (same-day roster moves) and to
// issue retroactive stat corrections for about a week after a game, so the
// defaults are 3 and 7 days, but both come from configuration.
type Windows struct {
	// ForceRefresh is the trailing window in which every entity is
	// re-fetched and re-classified regardless of stored fingerprints.
	ForceRefresh time.Duration

	// Correction is the trailing window in which statistics are re-checked
	// for retroactive corrections. Outside it, stat lines are immutable.
	Correction time.Duration
}

// InForceRefresh reports whether an entity dated d must be re-fetched
// unconditionally at time now. Future dates always qualify.
func (w Windows) InForceRefresh(d, now time.Time) bool {
	return w.within(d, now, w.ForceRefresh)
}

// InCorrection reports whether a statistic dated d is still inside the
// retroactive-correction horizon at time now.
func (w Windows) InCorrection(d, now time.Time) bool {
	return w.within(d, now, w.Correction)
}

// ShouldFetch reports whether the collector must issue an upstream fetch
// for entities of the given type dated d. Rosters and transactions are
// always fetched for requested dates; stat lines outside both windows are
// immutable and skipped when hasFingerprint is true (they were captured by
// an earlier run and can no longer change).
func (w Windows) ShouldFetch(entityType string, d, now time.Time, hasFingerprint bool) bool {
	if w.InForceRefresh(d, now) {
		return true
	}
	if entityType != models.EntityStatLine {
		return true
	}
	if w.InCorrection(d, now) {
		return true
	}
	return !hasFingerprint
}

func (w Windows) within(d, now time.Time, window time.Duration) bool {
	day := models.Midnight(d)
	cutoff := models.Midnight(now).Add(-window)
	return !day.Before(cutoff)
}
