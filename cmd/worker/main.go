// Command worker runs the scheduled ledger jobs: settlement, recurring
// catch-up and, when configured, the BigQuery snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.RegisterFlags(flag.CommandLine)
	once := flag.Bool("once", false, "run one round of jobs and exit")
	flag.Parse()

	log, err := logger.Configure(os.Stderr, cfg.LogLevel, logger.Format(cfg.LogFormat))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer a.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Dur("interval", cfg.JobInterval).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, a.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if *once {
		ids := publishRound(ctx, jobQueue, cfg, log)
		waitForJobs(ctx, jobStore, ids, quit)
	} else {
		ticker := time.NewTicker(cfg.JobInterval)
		defer ticker.Stop()

		publishRound(ctx, jobQueue, cfg, log)
		log.Info().Msg("Worker service started, waiting for jobs...")
	loop:
		for {
			select {
			case <-ticker.C:
				publishRound(ctx, jobQueue, cfg, log)
			case <-quit:
				break loop
			}
		}
	}

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}

// roundJobs lists the job types one scheduling round publishes. Recurring
// catch-up runs before settlement so that generated card expenses due today
// are settled in the same round.
func roundJobs(cfg config.Config) []jobs.JobType {
	types := []jobs.JobType{jobs.JobTypeRecurringCatchUp, jobs.JobTypeSettlePending}
	if cfg.ExportEnabled() {
		types = append(types, jobs.JobTypeExportLedger)
	}
	return types
}

// publishRound enqueues one round of jobs and returns their ids.
func publishRound(ctx context.Context, p jobs.Publisher, cfg config.Config, log zerolog.Logger) []string {
	var ids []string
	for _, typ := range roundJobs(cfg) {
		job := &jobs.LedgerJob{Type: typ}
		if err := p.Publish(ctx, job); err != nil {
			log.Error().Err(err).Str("job_type", string(typ)).Msg("Failed to enqueue job")
			continue
		}
		ids = append(ids, job.JobID)
	}
	return ids
}

// waitForJobs blocks until every job in ids has completed or failed, or a
// signal arrives.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string, quit <-chan os.Signal) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if allDone(ctx, store, ids) {
			return
		}
		select {
		case <-ticker.C:
		case <-quit:
			return
		}
	}
}

func allDone(ctx context.Context, store jobs.JobStore, ids []string) bool {
	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			return false
		}
		if job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed {
			return false
		}
	}
	return true
}
