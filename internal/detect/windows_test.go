// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package detect

import (
	"testing"
	"time"

	"github.com/dugoutproject/dugout/internal/models"
)

func TestWindowMembership(t *testing.T) {
	w := Windows{ForceRefresh: 3 * 24 * time.Hour, Correction: 7 * 24 * time.Hour}
	now := time.Date(2025, 8, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		date         time.Time
		forceRefresh bool
		correction   bool
	}{
		{"today", now, true, true},
		{"yesterday", now.AddDate(0, 0, -1), true, true},
		{"edge of force refresh", now.AddDate(0, 0, -3), true, true},
		{"past force refresh", now.AddDate(0, 0, -4), false, true},
		{"edge of correction", now.AddDate(0, 0, -7), false, true},
		{"past correction", now.AddDate(0, 0, -8), false, false},
		{"future date", now.AddDate(0, 0, 2), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.InForceRefresh(tt.date, now); got != tt.forceRefresh {
				t.Errorf("InForceRefresh = %v, want %v", got, tt.forceRefresh)
			}
			if got := w.InCorrection(tt.date, now); got != tt.correction {
				t.Errorf("InCorrection = %v, want %v", got, tt.correction)
			}
		})
	}
}

func TestShouldFetch(t *testing.T) {
	w := Windows{ForceRefresh: 3 * 24 * time.Hour, Correction: 7 * 24 * time.Hour}
	now := time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -1)
	midRange := now.AddDate(0, 0, -5)
	ancient := now.AddDate(0, 0, -30)

	tests := []struct {
		name           string
		entityType     string
		date           time.Time
		hasFingerprint bool
		want           bool
	}{
		{"recent statline always fetched", models.EntityStatLine, recent, true, true},
		{"correction-window statline fetched despite fingerprint", models.EntityStatLine, midRange, true, true},
		{"ancient fingerprinted statline skipped", models.EntityStatLine, ancient, true, false},
		{"ancient unseen statline fetched", models.EntityStatLine, ancient, false, true},
		{"ancient roster still fetched", models.EntityRoster, ancient, true, true},
		{"ancient transaction still fetched", models.EntityTransaction, ancient, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.ShouldFetch(tt.entityType, tt.date, now, tt.hasFingerprint); got != tt.want {
				t.Errorf("ShouldFetch = %v, want %v", got, tt.want)
			}
		})
	}
}
