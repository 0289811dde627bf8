package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.LedgerJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach status %s, last seen %+v", jobID, want, job)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, store)
	defer queue.Close()

	var seen atomic.Value
	if err := queue.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		seen.Store(job.GetType())
		job.(*jobs.LedgerJob).Result = map[string]int{"settled": 2}
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.LedgerJob{Type: jobs.JobTypeSettlePending}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != defaultMaxRetries {
		t.Errorf("Publish() did not fill defaults: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("Expected timestamps on completed job, got %+v", done)
	}
	if done.Result == nil {
		t.Error("Expected handler result to be stored")
	}
	if got := seen.Load(); got != jobs.JobTypeSettlePending {
		t.Errorf("handler saw type %v", got)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, store, WithBackoff(func(int) time.Duration { return 0 }))
	defer queue.Close()

	var calls atomic.Int32
	if err := queue.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.LedgerJob{Type: jobs.JobTypeRecurringCatchUp, MaxRetries: 2}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 || failed.Error != "store unavailable" {
		t.Errorf("failed job = %+v", failed)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
}

func TestQueue_RetrySucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(10, store, WithBackoff(func(int) time.Duration { return 0 }))
	defer queue.Close()

	var calls atomic.Int32
	if err := queue.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.LedgerJob{Type: jobs.JobTypeExportLedger}
	if err := queue.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("completed job = %+v", done)
	}
}

func TestQueue_PublishValidation(t *testing.T) {
	queue := NewQueue(1, nil)

	if err := queue.Publish(context.Background(), &jobs.LedgerJob{Type: "parse_document"}); err == nil {
		t.Error("Expected error for unknown job type")
	}

	if err := queue.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := queue.Publish(context.Background(), &jobs.LedgerJob{Type: jobs.JobTypeSettlePending}); err == nil {
		t.Error("Expected error publishing to a closed queue")
	}
	if err := queue.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }); err == nil {
		t.Error("Expected error starting a closed queue")
	}
}
