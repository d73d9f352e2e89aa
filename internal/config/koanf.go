// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dugout/config.yaml",
	"/etc/dugout/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "DUGOUT_CONFIG"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Environment: EnvTest, // Never default to production
		Upstream: UpstreamConfig{
			BaseURL:        "",
			APIKey:         "",
			RequestTimeout: 30 * time.Second,
			MinInterval:    time.Second, // Provider caps at ~1 req/s
			MaxConcurrent:  2,
			RetryAttempts:  3,
			RetryDelay:     2 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/dugout.duckdb",
			Threads:   0, // 0 = runtime.NumCPU()
			MaxMemory: "2GB",
		},
		Replica: ReplicaConfig{
			URL:                   "",
			Token:                 "",
			MaxStatementsPerBatch: 100,
			MaxPayloadBytes:       1 << 20, // 1MiB documented payload ceiling
			RequestTimeout:        30 * time.Second,
		},
		Collector: CollectorConfig{
			ForceRefreshDays: 3,
			CorrectionDays:   7,
			Workers:          2,
			Teams:            nil,
		},
		Status: StatusConfig{
			Enabled: false,
			Addr:    ":9310",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load resolves configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (DUGOUT_CONFIG or DefaultConfigPaths)
//  3. Environment variables: highest priority
//
// The result is validated before being returned; commands must treat a
// Load failure as fatal rather than running with partial configuration.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DUGOUT_UPSTREAM_MIN_INTERVAL -> upstream.min_interval
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf paths.
// Only variables with the DUGOUT_ prefix are considered, plus the legacy
// unprefixed names kept for scheduler compatibility.
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)

	// Legacy names predating the DUGOUT_ prefix. The cron entries in
	// production still export these.
	legacy := map[string]string{
		"environment":      "environment",
		"upstream_api_key": "upstream.api_key",
		"replica_token":    "replica.token",
		"log_level":        "logging.level",
		"log_format":       "logging.format",
	}
	if path, ok := legacy[lower]; ok {
		return path
	}

	if !strings.HasPrefix(lower, "dugout_") {
		return "" // Ignore unrelated environment variables
	}
	trimmed := strings.TrimPrefix(lower, "dugout_")

	// First segment is the section, remainder is the key:
	// dugout_upstream_min_interval -> upstream.min_interval
	sections := []string{"upstream", "database", "replica", "collector", "status", "logging"}
	for _, section := range sections {
		if strings.HasPrefix(trimmed, section+"_") {
			return section + "." + strings.TrimPrefix(trimmed, section+"_")
		}
	}

	// Top-level keys: dugout_environment -> environment
	return trimmed
}
