// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package config defines the Dugout configuration model.
//
// Configuration is resolved exactly once at process start via Load and the
// resulting Config is threaded explicitly through every component
// constructor. No component re-derives environment-dependent settings per
// query; the test/production split is a typed field on this struct.
package config

import (
	"fmt"
	"time"
)

// Environment selects which deployment the pipeline writes to. Test and
// production use separate database files and separate replica endpoints,
// never shared tables with per-query namespace switching.
type Environment string

const (
	// EnvTest is the integration/staging environment.
	EnvTest Environment = "test"

	// EnvProduction is the live environment backing the public API.
	EnvProduction Environment = "production"
)

// Valid reports whether the environment is one of the known values.
func (e Environment) Valid() bool {
	return e == EnvTest || e == EnvProduction
}

// Config is the root configuration for all Dugout commands.
type Config struct {
	Environment Environment     `koanf:"environment"`
	Upstream    UpstreamConfig  `koanf:"upstream"`
	Database    DatabaseConfig  `koanf:"database"`
	Replica     ReplicaConfig   `koanf:"replica"`
	Collector   CollectorConfig `koanf:"collector"`
	Status      StatusConfig    `koanf:"status"`
	Logging     LoggingConfig   `koanf:"logging"`
}

// UpstreamConfig configures the rate-limited client for the league data API.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream API, e.g. https://api.league.example.
	BaseURL string `koanf:"base_url"`

	// APIKey is the static bearer credential. Ignored when a TokenSource is
	// injected programmatically (OAuth refresh flows).
	APIKey string `koanf:"api_key"`

	// RequestTimeout bounds a single upstream HTTP request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// MinInterval is the process-wide floor between outbound requests.
	// The provider rate-caps at roughly one request per second.
	MinInterval time.Duration `koanf:"min_interval"`

	// MaxConcurrent bounds in-flight upstream requests.
	MaxConcurrent int `koanf:"max_concurrent"`

	// RetryAttempts is the ceiling on attempts for transient failures.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryDelay is the initial backoff delay, doubled per attempt.
	RetryDelay time.Duration `koanf:"retry_delay"`
}

// DatabaseConfig configures the primary DuckDB store.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`

	// Threads limits DuckDB worker threads. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`

	// MaxMemory is the DuckDB memory ceiling, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`
}

// ReplicaConfig configures the remote batch-execute endpoint that fronts
// the read-optimized replica store.
type ReplicaConfig struct {
	// URL is the batch-execute endpoint.
	URL string `koanf:"url"`

	// Token is the bearer credential for the replica write API.
	Token string `koanf:"token"`

	// MaxStatementsPerBatch is the documented statement ceiling per call.
	MaxStatementsPerBatch int `koanf:"max_statements_per_batch"`

	// MaxPayloadBytes is the documented request payload ceiling per call.
	MaxPayloadBytes int `koanf:"max_payload_bytes"`

	// RequestTimeout bounds a single batch-execute call.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// CollectorConfig configures collection policy.
type CollectorConfig struct {
	// ForceRefreshDays is the trailing window in which entities are always
	// re-fetched and re-classified: upstream data this recent is known to
	// still be mutable (same-day roster edits).
	ForceRefreshDays int `koanf:"force_refresh_days"`

	// CorrectionDays is the trailing window in which player statistics are
	// re-checked for retroactive upstream corrections. Outside it, stat
	// lines are treated as immutable.
	CorrectionDays int `koanf:"correction_days"`

	// Workers bounds parallel sub-range workers for historical collection.
	Workers int `koanf:"workers"`

	// Teams lists the team identifiers whose rosters are collected.
	Teams []string `koanf:"teams"`
}

// StatusConfig configures the optional read-only monitoring server.
type StatusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ForceRefreshWindow returns the force-refresh window as a duration.
func (c CollectorConfig) ForceRefreshWindow() time.Duration {
	return time.Duration(c.ForceRefreshDays) * 24 * time.Hour
}

// CorrectionWindow returns the correction window as a duration.
func (c CollectorConfig) CorrectionWindow() time.Duration {
	return time.Duration(c.CorrectionDays) * 24 * time.Hour
}

// String renders a redacted one-line summary for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s upstream=%s db=%s replica=%s workers=%d",
		c.Environment, c.Upstream.BaseURL, c.Database.Path, c.Replica.URL, c.Collector.Workers)
}
