// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package replica

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/logging"
)

// Statement is one parameterized write for the replica batch endpoint.
type Statement struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Executor applies statements to the replica. Implemented by RemoteClient
// in production and by local appliers in tests.
type Executor interface {
	Execute(ctx context.Context, stmts []Statement) error
}

// RemoteClient talks to the replica's batch-execute endpoint. The endpoint
// documents hard ceilings on statements per call and payload size; the
// client chunks transparently to stay under both.
type RemoteClient struct {
	url           string
	token         string
	httpClient    *http.Client
	maxStatements int
	maxPayload    int
}

// NewRemoteClient builds a client from replica config.
func NewRemoteClient(cfg *config.ReplicaConfig) *RemoteClient {
	return &RemoteClient{
		url:           cfg.URL,
		token:         cfg.Token,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		maxStatements: cfg.MaxStatementsPerBatch,
		maxPayload:    cfg.MaxPayloadBytes,
	}
}

type batchRequest struct {
	Statements []Statement `json:"statements"`
}

// Execute applies the statements in order, chunked to the endpoint's
// ceilings. The first failing chunk aborts: callers own the decision to
// degrade to per-row application.
func (c *RemoteClient) Execute(ctx context.Context, stmts []Statement) error {
	for len(stmts) > 0 {
		n := len(stmts)
		if c.maxStatements > 0 && n > c.maxStatements {
			n = c.maxStatements
		}

		chunk, body, err := c.fitChunk(stmts[:n])
		if err != nil {
			return err
		}
		if err := c.post(ctx, body); err != nil {
			return err
		}
		stmts = stmts[chunk:]
	}
	return nil
}

// fitChunk shrinks a candidate chunk until its serialized payload fits the
// ceiling, returning the chunk length and the encoded body. A single
// statement over the ceiling cannot be shrunk further and fails.
func (c *RemoteClient) fitChunk(stmts []Statement) (int, []byte, error) {
	n := len(stmts)
	for {
		body, err := json.Marshal(batchRequest{Statements: stmts[:n]})
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode batch: %w", err)
		}
		if c.maxPayload <= 0 || len(body) <= c.maxPayload {
			return n, body, nil
		}
		if n == 1 {
			return 0, nil, fmt.Errorf("statement payload of %d bytes exceeds the %d byte ceiling",
				len(body), c.maxPayload)
		}
		n /= 2
	}
}

func (c *RemoteClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute batch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The endpoint returns a short diagnostic body on failure.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("replica batch endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	logging.Debug().Int("bytes", len(body)).Msg("Replica batch applied")
	return nil
}
