// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if !c.Environment.Valid() {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvTest, EnvProduction, c.Environment)
	}

	if err := c.validateUpstream(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateReplica(); err != nil {
		return err
	}

	return c.validateCollector()
}

func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("DUGOUT_UPSTREAM_BASE_URL is required")
	}
	if err := validateURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
		return err
	}
	if c.Upstream.MinInterval < 0 {
		return fmt.Errorf("upstream.min_interval must not be negative")
	}
	if c.Upstream.MaxConcurrent < 1 {
		return fmt.Errorf("upstream.max_concurrent must be at least 1, got %d", c.Upstream.MaxConcurrent)
	}
	if c.Upstream.RetryAttempts < 1 {
		return fmt.Errorf("upstream.retry_attempts must be at least 1, got %d", c.Upstream.RetryAttempts)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

func (c *Config) validateReplica() error {
	// The replica endpoint is only required for the sync command; collect
	// runs validate it lazily. An empty URL is therefore allowed here.
	if c.Replica.URL != "" {
		if err := validateURL("replica.url", c.Replica.URL); err != nil {
			return err
		}
	}
	if c.Replica.MaxStatementsPerBatch < 1 {
		return fmt.Errorf("replica.max_statements_per_batch must be at least 1, got %d", c.Replica.MaxStatementsPerBatch)
	}
	if c.Replica.MaxPayloadBytes < 1024 {
		return fmt.Errorf("replica.max_payload_bytes must be at least 1024, got %d", c.Replica.MaxPayloadBytes)
	}
	return nil
}

func (c *Config) validateCollector() error {
	if c.Collector.ForceRefreshDays < 0 {
		return fmt.Errorf("collector.force_refresh_days must not be negative")
	}
	if c.Collector.CorrectionDays < 0 {
		return fmt.Errorf("collector.correction_days must not be negative")
	}
	if c.Collector.CorrectionDays < c.Collector.ForceRefreshDays {
		return fmt.Errorf("collector.correction_days (%d) must not be shorter than collector.force_refresh_days (%d)",
			c.Collector.CorrectionDays, c.Collector.ForceRefreshDays)
	}
	if c.Collector.Workers < 1 {
		return fmt.Errorf("collector.workers must be at least 1, got %d", c.Collector.Workers)
	}
	return nil
}

// validateURL checks that a value parses as an absolute http(s) URL.
func validateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" || strings.Contains(u.Host, " ") {
		return fmt.Errorf("%s has an invalid host: %q", field, value)
	}
	return nil
}
