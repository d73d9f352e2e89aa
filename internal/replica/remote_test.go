// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

package replica

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dugoutproject/dugout/internal/config"
)

type capturedCall struct {
	auth       string
	statements int
	bytes      int
}

func newBatchServer(t *testing.T, status int) (*httptest.Server, *[]capturedCall) {
	t.Helper()

	var mu sync.Mutex
	calls := &[]capturedCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var req batchRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode body: %v", err)
		}

		mu.Lock()
		*calls = append(*calls, capturedCall{
			auth:       r.Header.Get("Authorization"),
			statements: len(req.Statements),
			bytes:      len(body),
		})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func testRemote(url string, maxStatements, maxPayload int) *RemoteClient {
	return NewRemoteClient(&config.ReplicaConfig{
		URL:                   url,
		Token:                 "secret",
		MaxStatementsPerBatch: maxStatements,
		MaxPayloadBytes:       maxPayload,
		RequestTimeout:        5 * time.Second,
	})
}

func makeStatements(n int) []Statement {
	stmts := make([]Statement, n)
	for i := range stmts {
		stmts[i] = Statement{SQL: "INSERT OR REPLACE INTO jobs (id) VALUES (?)", Params: []any{i}}
	}
	return stmts
}

func TestExecuteChunksByStatementCeiling(t *testing.T) {
	server, calls := newBatchServer(t, http.StatusOK)
	client := testRemote(server.URL, 2, 0)

	if err := client.Execute(context.Background(), makeStatements(5)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(*calls) != 3 {
		t.Fatalf("server received %d calls, want 3", len(*calls))
	}
	total := 0
	for _, call := range *calls {
		if call.statements > 2 {
			t.Errorf("chunk carried %d statements, ceiling is 2", call.statements)
		}
		if call.auth != "Bearer secret" {
			t.Errorf("auth header = %q", call.auth)
		}
		total += call.statements
	}
	if total != 5 {
		t.Errorf("statements delivered = %d, want 5", total)
	}
}

func TestExecuteRespectsPayloadCeiling(t *testing.T) {
	server, calls := newBatchServer(t, http.StatusOK)
	client := testRemote(server.URL, 0, 300)

	if err := client.Execute(context.Background(), makeStatements(8)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	total := 0
	for _, call := range *calls {
		if call.bytes > 300 {
			t.Errorf("chunk payload = %d bytes, ceiling is 300", call.bytes)
		}
		total += call.statements
	}
	if total != 8 {
		t.Errorf("statements delivered = %d, want 8", total)
	}
}

func TestExecuteRejectsOversizedStatement(t *testing.T) {
	server, _ := newBatchServer(t, http.StatusOK)
	client := testRemote(server.URL, 0, 40)

	err := client.Execute(context.Background(), makeStatements(1))
	if err == nil {
		t.Fatal("Execute() accepted a statement over the payload ceiling")
	}
}

func TestExecuteSurfacesHTTPFailure(t *testing.T) {
	server, calls := newBatchServer(t, http.StatusBadGateway)
	client := testRemote(server.URL, 10, 0)

	err := client.Execute(context.Background(), makeStatements(3))
	if err == nil {
		t.Fatal("Execute() swallowed a 502")
	}
	if len(*calls) != 1 {
		t.Errorf("server received %d calls after failure, want 1", len(*calls))
	}
}
