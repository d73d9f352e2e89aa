// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package detect implements content-hash change detection.
//
// A fingerprint is a SHA-256 digest over the canonical serialization of an
// entity's normalized mutable fields. Canonicalization sorts keys at every
// nesting level and trims incidental whitespace, so field order and
// formatting in the upstream payload never affect the hash: the same
// logical content always yields the same fingerprint, across runs and
// across process restarts.
package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/models"
)

// Fingerprint computes the content hash of an entity's mutable field set.
// It is a pure function: no clock, no randomness, no state.
func Fingerprint(e models.Fingerprintable) (string, error) {
	canonical, err := canonicalize(e.FingerprintFields())
	if err != nil {
		return "", fmt.Errorf("canonicalize %s %s: %w", e.EntityType(), e.NaturalKey(), err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize serializes a field set deterministically. Map keys are
// sorted at every level and string values trimmed; json.Marshal then
// renders scalars identically for identical values.
func canonicalize(fields map[string]any) ([]byte, error) {
	return json.Marshal(normalize(fields))
}

// normalize walks a value tree, trimming strings and rebuilding maps so
// marshaling produces a stable rendering. json.Marshal already sorts map
// keys; normalization guards the value side.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[strings.TrimSpace(k)] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case string:
		return strings.TrimSpace(val)
	default:
		return val
	}
}

// DiffFields returns the names of fields whose values differ between two
// field sets, including fields present on only one side. The result is
// sorted for stable change-log rendering.
func DiffFields(old, new map[string]any) []string {
	changed := make(map[string]struct{})

	for k, ov := range old {
		nv, ok := new[k]
		if !ok {
			changed[k] = struct{}{}
			continue
		}
		if !equalValue(ov, nv) {
			changed[k] = struct{}{}
		}
	}
	for k := range new {
		if _, ok := old[k]; !ok {
			changed[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(changed))
	for k := range changed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// equalValue compares two field values through their canonical rendering,
// so 1 and int64(1) compare equal the same way they hash equal.
func equalValue(a, b any) bool {
	ab, aerr := json.Marshal(normalize(a))
	bb, berr := json.Marshal(normalize(b))
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}
