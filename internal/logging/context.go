// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// jobIDKey is the context key for job ledger IDs.
	jobIDKey contextKey = "job_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// ContextWithJobID returns a new context carrying the given job ledger ID.
// Every log line emitted via Ctx under this context is tagged with the ID,
// so a run's log stream can be joined back to its JobRecord.
//
//	ctx = logging.ContextWithJobID(ctx, jobID)
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext retrieves the job ID from context.
// Returns empty string if not present.
func JobIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(jobIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with context values (job_id) automatically added.
// This is the recommended way to log inside collector and sync runs.
//
//	logging.Ctx(ctx).Info().Msg("Date committed")
//	// Output: {"level":"info","job_id":"collect-production-20250813...","message":"Date committed"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)

	contextLogger := logger.With().Logger()
	if jobID := JobIDFromContext(ctx); jobID != "" {
		contextLogger = contextLogger.With().Str("job_id", jobID).Logger()
	}

	return &contextLogger
}
