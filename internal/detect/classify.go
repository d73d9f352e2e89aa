// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package detect

import "time"

// Classification is the change detector's verdict for one fetched entity
// against its stored fingerprint.
type Classification int

const (
	// New: no stored fingerprint exists for the natural key.
	New Classification = iota

	// Unchanged: the stored fingerprint matches the fresh hash. Only the
	// fingerprint's last-checked timestamp is refreshed.
	Unchanged

	// Changed: the stored fingerprint differs. The entity is rewritten
	// and a change-log entry appended.
	Changed
)

// String renders the classification for logs and metrics labels.
func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// StoredFingerprint is one row of the fingerprint ledger: the last known
// content hash for a natural key, with bookkeeping.
type StoredFingerprint struct {
	EntityType    string
	NaturalKey    string
	ContentHash   string
	LastCheckedAt time.Time
	JobID         string
}

// Classify compares a freshly computed hash against the stored fingerprint.
// A nil stored fingerprint means the entity has never been observed.
func Classify(freshHash string, stored *StoredFingerprint) Classification {
	if stored == nil {
		return New
	}
	if stored.ContentHash == freshHash {
		return Unchanged
	}
	return Changed
}
