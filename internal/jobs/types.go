package jobs

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// ErrJobNotFound is returned by JobStore implementations for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSettlePending settles every transaction due on or before AsOf.
	JobTypeSettlePending JobType = "settle_pending"
	// JobTypeRecurringCatchUp fires recurring templates up to AsOf.
	JobTypeRecurringCatchUp JobType = "recurring_catch_up"
	// JobTypeExportLedger pushes a ledger snapshot to BigQuery.
	JobTypeExportLedger JobType = "export_ledger"
)

// Validate rejects unknown job types.
func (t JobType) Validate() error {
	switch t {
	case JobTypeSettlePending, JobTypeRecurringCatchUp, JobTypeExportLedger:
		return nil
	default:
		return errors.New("unknown job type: " + string(t))
	}
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// LedgerJob is a unit of background ledger work.
type LedgerJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Type selects what the job does.
	Type JobType `json:"type"`

	// AsOf is the business date the job runs for. Nil means "today" at the
	// time the job is processed.
	AsOf *civil.Date `json:"as_of,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result holds the handler's summary of a completed run.
	Result any `json:"result,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *LedgerJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *LedgerJob) GetType() JobType {
	return j.Type
}

// GetStatus implements the Job interface.
func (j *LedgerJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues a job.
	Publish(ctx context.Context, job *LedgerJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *LedgerJob) error

	// GetJob retrieves a job by ID or returns ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*LedgerJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*LedgerJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Type filters jobs by type.
	Type JobType

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
