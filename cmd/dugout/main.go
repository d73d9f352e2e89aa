// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package main is the Dugout command line entry point.
//
// Dugout ingests third-party sports league data (transactions, daily
// rosters, player statistics) into a primary DuckDB store and propagates
// changes to a remote read replica. Every run is tracked in a job ledger,
// change detection is content-hash based, and replication is applied in
// foreign-key dependency order.
//
// # Commands
//
//	dugout collect --start 2025-08-01 --end 2025-08-13 [--workers 2]
//	dugout sync --since 3
//	dugout status-server
//
// Each command loads configuration once at startup (Koanf v2, layered:
// defaults, optional YAML file, environment variables) and prints the job
// id(s) it opened so that failed runs can be traced in the ledger. Exit
// code 0 means the run completed; any unrecovered failure exits 1.
//
// # Scheduling
//
// Commands are designed for cron-style invocation: each process runs one
// job to completion and exits. The scheduler owns overlap discipline — two
// collections over the same date range must not run concurrently.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dugoutproject/dugout/internal/collector"
	"github.com/dugoutproject/dugout/internal/config"
	"github.com/dugoutproject/dugout/internal/ledger"
	"github.com/dugoutproject/dugout/internal/logging"
	"github.com/dugoutproject/dugout/internal/models"
	"github.com/dugoutproject/dugout/internal/replica"
	"github.com/dugoutproject/dugout/internal/status"
	"github.com/dugoutproject/dugout/internal/store"
	"github.com/dugoutproject/dugout/internal/upstream"
)

const usage = `Usage: dugout <command> [flags]

Commands:
  collect        Collect a date range from the upstream API
  sync           Push recent changes to the replica store
  status-server  Serve the read-only monitoring API

Run "dugout <command> -h" for command flags.`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	switch args[0] {
	case "collect":
		return cmdCollect(args[1:])
	case "sync":
		return cmdSync(args[1:])
	case "status-server":
		return cmdStatusServer(args[1:])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", args[0], usage)
		return 1
	}
}

// loadConfig resolves configuration and initializes logging from it. The
// optional --config path takes effect through the DUGOUT_CONFIG variable
// that the loader already honors.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("config", cfg.String()).Msg("Configuration loaded")
	return cfg, nil
}

func cmdCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	start := fs.String("start", "", "first date to collect (YYYY-MM-DD, required)")
	end := fs.String("end", "", "last date to collect (YYYY-MM-DD, defaults to --start)")
	workers := fs.Int("workers", 0, "parallel sub-range workers (default from config)")
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}

	dateRange, err := parseRange(*start, *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}

	s, err := store.Open(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}
	defer closeStore(s)

	limiter := upstream.NewLimiter(cfg.Upstream.MinInterval, cfg.Upstream.MaxConcurrent)
	client := upstream.NewClient(&cfg.Upstream, upstream.StaticToken(cfg.Upstream.APIKey), limiter)
	fetcher := upstream.NewBreakerClient(client)

	c := collector.New(fetcher, s, ledger.New(s, cfg.Environment), &cfg.Collector)

	n := *workers
	if n <= 0 {
		n = cfg.Collector.Workers
	}

	ctx := signalContext()
	jobs, err := c.RunParallel(ctx, dateRange, n)
	for _, job := range jobs {
		fmt.Printf("job %s %s\n", job.ID, job.Status)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: collection failed: %v\n", err)
		return 1
	}
	return 0
}

func cmdSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	since := fs.Int("since", 3, "export rows modified in the trailing N days")
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}
	if cfg.Replica.URL == "" {
		fmt.Fprintln(os.Stderr, "dugout: sync requires replica.url to be configured")
		return 1
	}
	if *since < 1 {
		fmt.Fprintln(os.Stderr, "dugout: --since must be at least 1 day")
		return 1
	}

	s, err := store.Open(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}
	defer closeStore(s)

	syncer := replica.NewSyncer(
		replica.NewExporter(s),
		replica.NewImporter(replica.NewRemoteClient(&cfg.Replica)),
		ledger.New(s, cfg.Environment),
	)

	watermark := time.Now().UTC().AddDate(0, 0, -*since)
	job, summary, err := syncer.Run(signalContext(), watermark)
	if job != nil {
		fmt.Printf("job %s %s\n", job.ID, job.Status)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: sync failed: %v\n", err)
		return 1
	}
	if summary.Skipped() > 0 {
		fmt.Printf("partial success: %d rows skipped\n", summary.Skipped())
	}
	return 0
}

func cmdStatusServer(args []string) int {
	fs := flag.NewFlagSet("status-server", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}

	s, err := store.Open(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dugout: %v\n", err)
		return 1
	}
	defer closeStore(s)

	srv := status.New(&cfg.Status, s)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx := signalContext()
	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "dugout: status server failed: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Status server shutdown incomplete")
		}
	}
	return 0
}

// parseRange parses the collect flags into an inclusive date range.
func parseRange(start, end string) (models.DateRange, error) {
	if start == "" {
		return models.DateRange{}, fmt.Errorf("--start is required (YYYY-MM-DD)")
	}
	if end == "" {
		end = start
	}

	startDate, err := time.Parse(models.DateFormat, start)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid --start %q: %w", start, err)
	}
	endDate, err := time.Parse(models.DateFormat, end)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid --end %q: %w", end, err)
	}
	return models.NewDateRange(startDate, endDate)
}

func closeStore(s *store.Store) {
	if err := s.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close store")
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		logging.Info().Msg("Shutdown signal received")
		cancel()
	}()
	return ctx
}
