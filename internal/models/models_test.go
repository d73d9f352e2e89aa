// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNaturalKeys(t *testing.T) {
	roster := &Roster{Date: date(2025, 8, 13), TeamID: "NYM"}
	if got := roster.NaturalKey(); got != "2025-08-13/NYM" {
		t.Errorf("roster key = %q, want 2025-08-13/NYM", got)
	}

	stat := &StatLine{Date: date(2025, 8, 13), PlayerID: "p-101"}
	if got := stat.NaturalKey(); got != "2025-08-13/p-101" {
		t.Errorf("stat key = %q, want 2025-08-13/p-101", got)
	}

	txn := &Transaction{UpstreamID: "t-9"}
	if got := txn.NaturalKey(); got != "t-9" {
		t.Errorf("transaction key = %q, want t-9", got)
	}
}

func TestRosterFingerprintFieldsOrderIndependent(t *testing.T) {
	a := &Roster{
		Date:   date(2025, 8, 13),
		TeamID: "NYM",
		Entries: []RosterEntry{
			{PlayerID: "p1", Name: "Alice", Position: "C", Status: "active", Slot: 1},
			{PlayerID: "p2", Name: "Bob", Position: "1B", Status: "active", Slot: 2},
		},
	}
	b := &Roster{
		Date:   date(2025, 8, 13),
		TeamID: "NYM",
		Entries: []RosterEntry{
			{PlayerID: "p2", Name: "Bob", Position: "1B", Status: "active", Slot: 2},
			{PlayerID: "p1", Name: "Alice", Position: "C", Status: "active", Slot: 1},
		},
	}

	fa, fb := a.FingerprintFields(), b.FingerprintFields()
	if len(fa) != len(fb) {
		t.Fatalf("field counts differ: %d vs %d", len(fa), len(fb))
	}
	for k := range fa {
		if _, ok := fb[k]; !ok {
			t.Errorf("key %q missing from reordered roster fields", k)
		}
	}
}

func TestFingerprintFieldsExcludeJobID(t *testing.T) {
	entities := []Fingerprintable{
		&Transaction{UpstreamID: "t-1", JobID: "job-a"},
		&StatLine{PlayerID: "p1", JobID: "job-a"},
	}
	for _, e := range entities {
		for k := range e.FingerprintFields() {
			if k == "job_id" {
				t.Errorf("%s fingerprint fields leak job_id", e.EntityType())
			}
		}
	}
}

func TestDateRange(t *testing.T) {
	r, err := NewDateRange(date(2025, 8, 1), date(2025, 8, 5))
	if err != nil {
		t.Fatalf("NewDateRange: %v", err)
	}
	if r.Days() != 5 {
		t.Errorf("Days() = %d, want 5", r.Days())
	}

	dates := r.Dates()
	if len(dates) != 5 {
		t.Fatalf("Dates() returned %d dates, want 5", len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Errorf("dates not chronological at index %d", i)
		}
	}

	if _, err := NewDateRange(date(2025, 8, 5), date(2025, 8, 1)); err == nil {
		t.Error("expected error for reversed range")
	}
}

func TestDateRangeNormalizesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	r, err := NewDateRange(
		time.Date(2025, 8, 1, 23, 30, 0, 0, loc),
		time.Date(2025, 8, 2, 1, 0, 0, 0, loc),
	)
	if err != nil {
		t.Fatalf("NewDateRange: %v", err)
	}
	if r.Start.Hour() != 0 || r.Start.Location() != time.UTC {
		t.Errorf("start not normalized: %v", r.Start)
	}
}

func TestDateRangeSplit(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		n       int
		wantLen int
	}{
		{"even split", 10, 2, 2},
		{"uneven split", 7, 3, 3},
		{"more workers than days", 2, 4, 2},
		{"single worker", 5, 1, 1},
		{"zero workers clamps to one", 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewDateRange(date(2025, 8, 1), date(2025, 8, tt.days))
			if err != nil {
				t.Fatalf("NewDateRange: %v", err)
			}
			parts := r.Split(tt.n)
			if len(parts) != tt.wantLen {
				t.Fatalf("Split(%d) returned %d ranges, want %d", tt.n, len(parts), tt.wantLen)
			}

			// Sub-ranges must be contiguous, ordered, and cover the whole range.
			total := 0
			for i, p := range parts {
				total += p.Days()
				if i > 0 {
					prevEnd := parts[i-1].End
					if !p.Start.Equal(prevEnd.AddDate(0, 0, 1)) {
						t.Errorf("range %d not contiguous: %v after %v", i, p.Start, prevEnd)
					}
				}
			}
			if total != tt.days {
				t.Errorf("split covers %d days, want %d", total, tt.days)
			}
			if !parts[0].Start.Equal(r.Start) || !parts[len(parts)-1].End.Equal(r.End) {
				t.Error("split does not preserve range bounds")
			}
		})
	}
}
