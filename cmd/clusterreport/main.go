// Command clusterreport compares today's customer cluster snapshots with
// yesterday's, posts the summary to Slack and promotes today's snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/report"
	"github.com/growthlab/backend/internal/storage"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the message instead of sending it; snapshots are not rotated")
	flag.Parse()

	if err := run(*dryRun); err != nil {
		logging.Error().Err(err).Msg("cluster report failed")
		os.Exit(1)
	}
}

func run(dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if !dryRun {
		if err := cfg.ValidateReport(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Artifacts.Location)
	if err != nil {
		return fmt.Errorf("failed to open artifact store %s: %w", cfg.Artifacts.Location, err)
	}
	defer store.Close()

	job := report.NewJob(store, report.NewWebhook(cfg.Report.WebhookURL, cfg.Report.Timeout), cfg.Report)
	now := time.Now()

	if dryRun {
		msg, err := job.Build(ctx, now)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msg)
	}

	if err := job.Run(ctx, now); err != nil {
		return err
	}
	logging.Info().Msg("cluster report finished")
	return nil
}
