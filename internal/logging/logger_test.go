// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestInitLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn alias", "warning", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"unknown defaults to info", "bogus", zerolog.InfoLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, Timestamp: true})
	defer Init(DefaultConfig())

	Info().Str("table", "roster_entries").Msg("test message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["table"] != "roster_entries" {
		t.Errorf("table = %v, want %q", entry["table"], "roster_entries")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected time field in JSON output")
	}
}

func TestCtxAddsJobID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithJobID(context.Background(), "collect-test-20250813120000-abcd")
	Ctx(ctx).Info().Msg("with job")

	if !strings.Contains(buf.String(), `"job_id":"collect-test-20250813120000-abcd"`) {
		t.Errorf("expected job_id field in output, got: %s", buf.String())
	}
}

func TestCtxWithoutJobID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Ctx(context.Background()).Info().Msg("no job")

	if strings.Contains(buf.String(), "job_id") {
		t.Errorf("did not expect job_id field, got: %s", buf.String())
	}
}

func TestJobIDFromContext(t *testing.T) {
	if got := JobIDFromContext(context.Background()); got != "" {
		t.Errorf("JobIDFromContext(empty) = %q, want empty", got)
	}

	ctx := ContextWithJobID(context.Background(), "sync-test-1")
	if got := JobIDFromContext(ctx); got != "sync-test-1" {
		t.Errorf("JobIDFromContext = %q, want %q", got, "sync-test-1")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("should not appear")
	Info().Msg("should not appear either")
	Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("below-level messages were emitted: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing: %s", out)
	}
}
