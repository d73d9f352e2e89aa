// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package models defines the league data entities the pipeline collects.
//
// Each mutable entity implements Fingerprintable: a stable natural key plus
// the normalized set of mutable fields the change detector hashes. Fields
// excluded from FingerprintFields (bookkeeping timestamps, job ids) never
// influence change detection.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical YYYY-MM-DD rendering used in natural keys
// and upstream requests.
const DateFormat = "2006-01-02"

// Entity type names used in the fingerprint ledger and change log.
const (
	EntityTransaction = "transaction"
	EntityRoster      = "roster"
	EntityStatLine    = "statline"
)

// Fingerprintable is implemented by every entity tracked by the change
// detector.
type Fingerprintable interface {
	// EntityType returns the entity type name for the fingerprint ledger.
	EntityType() string

	// NaturalKey returns the stable identity of this logical entity,
	// e.g. "2025-08-13/NYM" for a roster-day.
	NaturalKey() string

	// EntityDate returns the date this entity belongs to, used by the
	// force-refresh and correction window policy.
	EntityDate() time.Time

	// FingerprintFields returns the normalized mutable field set. Map
	// iteration order never matters: the detector canonicalizes by key.
	FingerprintFields() map[string]any
}

// Transaction is one league transaction (trade, signing, activation) as
// reported by the upstream source.
type Transaction struct {
	UpstreamID  string    `json:"upstream_id"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	TeamID      string    `json:"team_id"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	Description string    `json:"description"`
	JobID       string    `json:"job_id"`
}

// EntityType implements Fingerprintable.
func (t *Transaction) EntityType() string { return EntityTransaction }

// NaturalKey implements Fingerprintable. Upstream transaction ids are
// unique per transaction, so they are the key on their own.
func (t *Transaction) NaturalKey() string { return t.UpstreamID }

// EntityDate implements Fingerprintable.
func (t *Transaction) EntityDate() time.Time { return t.Date }

// FingerprintFields implements Fingerprintable.
func (t *Transaction) FingerprintFields() map[string]any {
	return map[string]any{
		"date":        t.Date.Format(DateFormat),
		"type":        strings.TrimSpace(t.Type),
		"team_id":     strings.TrimSpace(t.TeamID),
		"player_id":   strings.TrimSpace(t.PlayerID),
		"player_name": strings.TrimSpace(t.PlayerName),
		"description": strings.TrimSpace(t.Description),
	}
}

// RosterEntry is one player's slot on one team's roster for one date.
type RosterEntry struct {
	Date     time.Time `json:"date"`
	TeamID   string    `json:"team_id"`
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Position string    `json:"position"`
	Status   string    `json:"status"` // active, injured, minors
	Slot     int       `json:"slot"`
	JobID    string    `json:"job_id"`
}

// Roster is one team's complete roster for one date. The roster-day is the
// change-detection unit: end users edit individual slots, but a single
// fingerprint over the whole day keeps classification one comparison per
// team per date.
type Roster struct {
	Date    time.Time     `json:"date"`
	TeamID  string        `json:"team_id"`
	Entries []RosterEntry `json:"entries"`
}

// EntityType implements Fingerprintable.
func (r *Roster) EntityType() string { return EntityRoster }

// NaturalKey implements Fingerprintable.
func (r *Roster) NaturalKey() string {
	return fmt.Sprintf("%s/%s", r.Date.Format(DateFormat), r.TeamID)
}

// EntityDate implements Fingerprintable.
func (r *Roster) EntityDate() time.Time { return r.Date }

// FingerprintFields implements Fingerprintable. Entries are keyed by
// player id so that upstream ordering differences never change the hash.
func (r *Roster) FingerprintFields() map[string]any {
	fields := map[string]any{
		"team_id": strings.TrimSpace(r.TeamID),
		"date":    r.Date.Format(DateFormat),
	}
	for _, e := range r.Entries {
		key := "entry." + strings.TrimSpace(e.PlayerID)
		fields[key] = map[string]any{
			"name":     strings.TrimSpace(e.Name),
			"position": strings.TrimSpace(e.Position),
			"status":   strings.TrimSpace(e.Status),
			"slot":     e.Slot,
		}
	}
	return fields
}

// StatLine is one player's performance line for one date. Upstream issues
// retroactive corrections to these for up to a week after a game.
type StatLine struct {
	Date     time.Time `json:"date"`
	PlayerID string    `json:"player_id"`
	TeamID   string    `json:"team_id"`

	// Batting
	AtBats   int `json:"at_bats"`
	Hits     int `json:"hits"`
	Runs     int `json:"runs"`
	HomeRuns int `json:"home_runs"`
	RBI      int `json:"rbi"`
	Walks    int `json:"walks"`
	Steals   int `json:"steals"`

	// Pitching
	OutsPitched   int `json:"outs_pitched"` // Innings stored as outs to stay integral
	EarnedRuns    int `json:"earned_runs"`
	Strikeouts    int `json:"strikeouts"`
	WalksAllowed  int `json:"walks_allowed"`
	HitsAllowed   int `json:"hits_allowed"`
	Wins          int `json:"wins"`
	Saves         int `json:"saves"`
	QualityStarts int `json:"quality_starts"`

	JobID string `json:"job_id"`
}

// EntityType implements Fingerprintable.
func (s *StatLine) EntityType() string { return EntityStatLine }

// NaturalKey implements Fingerprintable.
func (s *StatLine) NaturalKey() string {
	return fmt.Sprintf("%s/%s", s.Date.Format(DateFormat), s.PlayerID)
}

// EntityDate implements Fingerprintable.
func (s *StatLine) EntityDate() time.Time { return s.Date }

// FingerprintFields implements Fingerprintable.
func (s *StatLine) FingerprintFields() map[string]any {
	return map[string]any{
		"date":           s.Date.Format(DateFormat),
		"player_id":      strings.TrimSpace(s.PlayerID),
		"team_id":        strings.TrimSpace(s.TeamID),
		"at_bats":        s.AtBats,
		"hits":           s.Hits,
		"runs":           s.Runs,
		"home_runs":      s.HomeRuns,
		"rbi":            s.RBI,
		"walks":          s.Walks,
		"steals":         s.Steals,
		"outs_pitched":   s.OutsPitched,
		"earned_runs":    s.EarnedRuns,
		"strikeouts":     s.Strikeouts,
		"walks_allowed":  s.WalksAllowed,
		"hits_allowed":   s.HitsAllowed,
		"wins":           s.Wins,
		"saves":          s.Saves,
		"quality_starts": s.QualityStarts,
	}
}

// DateRange is an inclusive range of dates processed by a run.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range, normalizing both bounds to midnight UTC.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := Midnight(start)
	e := Midnight(end)
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("invalid date range: end %s before start %s",
			e.Format(DateFormat), s.Format(DateFormat))
	}
	return DateRange{Start: s, End: e}, nil
}

// Days returns the number of dates in the range, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start)/(24*time.Hour)) + 1
}

// Dates returns every date in the range in chronological order.
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Split partitions the range into at most n contiguous sub-ranges of
// near-equal length, preserving chronological order.
func (r DateRange) Split(n int) []DateRange {
	days := r.Days()
	if n < 1 {
		n = 1
	}
	if n > days {
		n = days
	}

	ranges := make([]DateRange, 0, n)
	per := days / n
	extra := days % n
	start := r.Start
	for i := 0; i < n; i++ {
		length := per
		if i < extra {
			length++
		}
		end := start.AddDate(0, 0, length-1)
		ranges = append(ranges, DateRange{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return ranges
}

// String renders the range as "start..end".
func (r DateRange) String() string {
	return r.Start.Format(DateFormat) + ".." + r.End.Format(DateFormat)
}

// Midnight truncates a time to midnight UTC.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
