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

func sampleRoster() *models.Roster {
	return &models.Roster{
		Date:   time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC),
		TeamID: "NYM",
		Entries: []models.RosterEntry{
			{PlayerID: "p1", Name: "Alice", Position: "C", Status: "active", Slot: 1},
			{PlayerID: "p2", Name: "Bob", Position: "1B", Status: "active", Slot: 2},
		},
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	r := sampleRoster()
	first, err := Fingerprint(r)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(first))
	}

	for i := 0; i < 10; i++ {
		again, err := Fingerprint(r)
		if err != nil {
			t.Fatalf("Fingerprint repeat %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("fingerprint not deterministic: %s vs %s", first, again)
		}
	}
}

func TestFingerprintIgnoresEntryOrder(t *testing.T) {
	a := sampleRoster()
	b := sampleRoster()
	b.Entries[0], b.Entries[1] = b.Entries[1], b.Entries[0]

	ha, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint(a): %v", err)
	}
	hb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint(b): %v", err)
	}
	if ha != hb {
		t.Errorf("entry order changed the hash: %s vs %s", ha, hb)
	}
}

func TestFingerprintIgnoresIncidentalWhitespace(t *testing.T) {
	a := sampleRoster()
	b := sampleRoster()
	b.Entries[0].Name = "  Alice "
	b.TeamID = "NYM "

	ha, _ := Fingerprint(a)
	hb, _ := Fingerprint(b)
	if ha != hb {
		t.Errorf("incidental whitespace changed the hash")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base, _ := Fingerprint(sampleRoster())

	mutations := []struct {
		name   string
		mutate func(*models.Roster)
	}{
		{"player swapped", func(r *models.Roster) { r.Entries[1].PlayerID = "p3" }},
		{"position changed", func(r *models.Roster) { r.Entries[0].Position = "DH" }},
		{"status changed", func(r *models.Roster) { r.Entries[0].Status = "injured" }},
		{"slot changed", func(r *models.Roster) { r.Entries[1].Slot = 9 }},
		{"entry removed", func(r *models.Roster) { r.Entries = r.Entries[:1] }},
		{"team changed", func(r *models.Roster) { r.TeamID = "BOS" }},
		{"date changed", func(r *models.Roster) { r.Date = r.Date.AddDate(0, 0, 1) }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRoster()
			tt.mutate(r)
			h, err := Fingerprint(r)
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			if h == base {
				t.Errorf("mutation %q did not change the hash", tt.name)
			}
		})
	}
}

func TestFingerprintJobIDInsensitive(t *testing.T) {
	a := &models.StatLine{Date: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC), PlayerID: "p1", Hits: 2, JobID: "job-a"}
	b := &models.StatLine{Date: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC), PlayerID: "p1", Hits: 2, JobID: "job-b"}

	ha, _ := Fingerprint(a)
	hb, _ := Fingerprint(b)
	if ha != hb {
		t.Error("owning job id leaked into the fingerprint")
	}
}

func TestClassify(t *testing.T) {
	stored := &StoredFingerprint{ContentHash: "aaa"}

	tests := []struct {
		name   string
		hash   string
		stored *StoredFingerprint
		want   Classification
	}{
		{"never observed", "aaa", nil, New},
		{"matching hash", "aaa", stored, Unchanged},
		{"differing hash", "bbb", stored, Changed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.hash, tt.stored); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffFields(t *testing.T) {
	old := map[string]any{"hits": 2, "runs": 1, "team_id": "NYM"}
	new := map[string]any{"hits": 3, "runs": 1, "team_id": "NYM", "rbi": 1}

	got := DiffFields(old, new)
	want := []string{"hits", "rbi"}
	if len(got) != len(want) {
		t.Fatalf("DiffFields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DiffFields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiffFieldsTypedEquality(t *testing.T) {
	// int vs int64 for the same value must not register as a change.
	old := map[string]any{"hits": int64(2)}
	new := map[string]any{"hits": 2}
	if got := DiffFields(old, new); len(got) != 0 {
		t.Errorf("DiffFields = %v, want empty for equal values of different int types", got)
	}
}
