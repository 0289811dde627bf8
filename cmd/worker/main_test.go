package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/money"
)

func TestRoundJobs(t *testing.T) {
	cfg := config.Default()
	want := []jobs.JobType{jobs.JobTypeRecurringCatchUp, jobs.JobTypeSettlePending}
	if diff := cmp.Diff(want, roundJobs(cfg)); diff != "" {
		t.Errorf("roundJobs() mismatch (-want +got):\n%s", diff)
	}

	cfg.BigQueryProject = "my-project"
	want = append(want, jobs.JobTypeExportLedger)
	if diff := cmp.Diff(want, roundJobs(cfg)); diff != "" {
		t.Errorf("roundJobs() with export mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishRound_RunsToCompletion(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")

	a, err := app.Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.Open() error = %v", err)
	}
	defer a.Close()
	if _, err := a.Engine.CreateAccount(ctx, "Main", money.New(0)); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, store)
	if err := queue.Start(ctx, a.HandleJob); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer queue.Stop(ctx)

	ids := publishRound(ctx, queue, cfg, zerolog.Nop())
	if len(ids) != 2 {
		t.Fatalf("published %d jobs, want 2", len(ids))
	}

	done := make(chan struct{})
	go func() {
		waitForJobs(ctx, store, ids, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not finish")
	}

	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			t.Fatalf("GetJob(%s) error = %v", id, err)
		}
		if job.Status != jobs.JobStatusCompleted {
			t.Errorf("job %s (%s) status = %s, error %q", id, job.Type, job.Status, job.Error)
		}
	}
}
