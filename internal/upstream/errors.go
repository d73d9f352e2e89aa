// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError is a retry-eligible upstream failure: timeouts, 5xx
// responses, and rate-limit (429) responses. The client retries these with
// exponential backoff up to the configured ceiling before surfacing one.
type TransientError struct {
	Endpoint string
	Status   int // 0 when the failure was not an HTTP status (timeout, network)
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient upstream failure on %s (status %d): %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("transient upstream failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a non-retryable upstream failure: authentication and
// validation errors (4xx other than 429). A run that hits one must abort
// immediately rather than continue to the next date.
type PermanentError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent upstream failure on %s (status %d): %v", e.Endpoint, e.Status, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps a contract violation (malformed payload, missing
// identifiers) as a permanent failure for the given endpoint.
func NewPermanentError(endpoint string, err error) *PermanentError {
	return &PermanentError{Endpoint: endpoint, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// classifyStatus maps an HTTP status code to the failure taxonomy.
// Returns nil for success statuses.
func classifyStatus(endpoint string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Endpoint: endpoint, Status: status,
			Err: fmt.Errorf("unexpected status: %d %s", status, http.StatusText(status))}
	default:
		return &PermanentError{Endpoint: endpoint, Status: status,
			Err: fmt.Errorf("unexpected status: %d %s", status, http.StatusText(status))}
	}
}
