// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package collector

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dugoutproject/dugout/internal/models"
)

// Upstream endpoint paths. One call per date for transactions and stats,
// one call per team per date for rosters.
const (
	endpointTransactions = "/v1/transactions"
	endpointStats        = "/v1/stats"
)

func endpointRoster(teamID string) string {
	return "/v1/teams/" + url.PathEscape(teamID) + "/roster"
}

func dateParams(date time.Time) url.Values {
	return url.Values{"date": []string{date.Format(models.DateFormat)}}
}

// transactionsPayload is the upstream transactions response for one date.
type transactionsPayload struct {
	Transactions []transactionPayload `json:"transactions"`
}

type transactionPayload struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	TeamID      string `json:"team_id"`
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	Description string `json:"description"`
}

func (p transactionPayload) toModel(date time.Time) (*models.Transaction, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("transaction on %s has no upstream id", date.Format(models.DateFormat))
	}
	d := date
	if p.Date != "" {
		parsed, err := time.Parse(models.DateFormat, p.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has malformed date %q: %w", p.ID, p.Date, err)
		}
		d = parsed
	}
	return &models.Transaction{
		UpstreamID:  strings.TrimSpace(p.ID),
		Date:        models.Midnight(d),
		Type:        p.Type,
		TeamID:      p.TeamID,
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		Description: p.Description,
	}, nil
}

// rosterPayload is one team's roster response for one date.
type rosterPayload struct {
	TeamID  string              `json:"team_id"`
	Entries []rosterSlotPayload `json:"entries"`
}

type rosterSlotPayload struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Status   string `json:"status"`
	Slot     int    `json:"slot"`
}

func (p rosterPayload) toModel(date time.Time, teamID string) *models.Roster {
	roster := &models.Roster{Date: models.Midnight(date), TeamID: teamID}
	for _, slot := range p.Entries {
		roster.Entries = append(roster.Entries, models.RosterEntry{
			Date:     roster.Date,
			TeamID:   teamID,
			PlayerID: slot.PlayerID,
			Name:     slot.Name,
			Position: slot.Position,
			Status:   slot.Status,
			Slot:     slot.Slot,
		})
	}
	return roster
}

// statsPayload is the upstream per-date statistics response.
type statsPayload struct {
	Lines []statLinePayload `json:"lines"`
}

type statLinePayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`

	AtBats   int `json:"at_bats"`
	Hits     int `json:"hits"`
	Runs     int `json:"runs"`
	HomeRuns int `json:"home_runs"`
	RBI      int `json:"rbi"`
	Walks    int `json:"walks"`
	Steals   int `json:"steals"`

	OutsPitched   int `json:"outs_pitched"`
	EarnedRuns    int `json:"earned_runs"`
	Strikeouts    int `json:"strikeouts"`
	WalksAllowed  int `json:"walks_allowed"`
	HitsAllowed   int `json:"hits_allowed"`
	Wins          int `json:"wins"`
	Saves         int `json:"saves"`
	QualityStarts int `json:"quality_starts"`
}

func (p statLinePayload) toModel(date time.Time) (*models.StatLine, error) {
	if strings.TrimSpace(p.PlayerID) == "" {
		return nil, fmt.Errorf("stat line on %s has no player id", date.Format(models.DateFormat))
	}
	return &models.StatLine{
		Date:     models.Midnight(date),
		PlayerID: strings.TrimSpace(p.PlayerID),
		TeamID:   p.TeamID,

		AtBats:   p.AtBats,
		Hits:     p.Hits,
		Runs:     p.Runs,
		HomeRuns: p.HomeRuns,
		RBI:      p.RBI,
		Walks:    p.Walks,
		Steals:   p.Steals,

		OutsPitched:   p.OutsPitched,
		EarnedRuns:    p.EarnedRuns,
		Strikeouts:    p.Strikeouts,
		WalksAllowed:  p.WalksAllowed,
		HitsAllowed:   p.HitsAllowed,
		Wins:          p.Wins,
		Saves:         p.Saves,
		QualityStarts: p.QualityStarts,
	}, nil
}
