// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package replica implements the dependency-ordered sync between the
// primary store and the remote replica.
//
// Every mutable row carries the id of the job that wrote it, so the jobs
// table is the root of the dependency graph and is always applied first.
// Ranks are computed from the graph rather than remembered by callers: a
// table referencing only jobs is rank 1, a table referencing rank-1 tables
// would be rank 2, and so on.
package replica

import (
	"fmt"
	"sort"
)

// tableDeps is the replica schema's dependency graph: each table maps to
// the tables its rows reference. The schema is small and changes rarely, so
// the graph is maintained by hand next to the export column lists.
var tableDeps = map[string][]string{
	"jobs":           {},
	"transactions":   {"jobs"},
	"roster_entries": {"jobs"},
	"player_stats":   {"jobs"},
	"change_log":     {"jobs"},
}

// DependencyRank returns the foreign-key depth of a table: 0 for the jobs
// root, 1 + max(rank of referenced tables) otherwise.
func DependencyRank(table string) (int, error) {
	return rankOf(table, map[string]bool{})
}

func rankOf(table string, visiting map[string]bool) (int, error) {
	deps, ok := tableDeps[table]
	if !ok {
		return 0, fmt.Errorf("table %q is not in the replica dependency graph", table)
	}
	if visiting[table] {
		return 0, fmt.Errorf("dependency cycle through table %q", table)
	}
	if len(deps) == 0 {
		return 0, nil
	}

	visiting[table] = true
	defer delete(visiting, table)

	max := 0
	for _, dep := range deps {
		r, err := rankOf(dep, visiting)
		if err != nil {
			return 0, err
		}
		if r >= max {
			max = r
		}
	}
	return max + 1, nil
}

// ReplicatedTables returns every table in the graph ordered by ascending
// rank, ties broken by name for stable iteration.
func ReplicatedTables() []string {
	tables := make([]string, 0, len(tableDeps))
	for t := range tableDeps {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		ri, _ := DependencyRank(tables[i])
		rj, _ := DependencyRank(tables[j])
		if ri != rj {
			return ri < rj
		}
		return tables[i] < tables[j]
	})
	return tables
}
