package handlers

import (
	"errors"
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/jobs"
)

// JobsHandler handles background job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		writeError(w, r, err, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("jobs", jobsList))
}

// EnqueueJob handles POST /api/jobs
//
// Body: {"type": "settle_pending", "as_of": "2024-04-10"}. as_of is
// optional.
func (h *JobsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type jobs.JobType `json:"type"`
		AsOf *civil.Date  `json:"as_of,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Type.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.LedgerJob{Type: req.Type, AsOf: req.AsOf}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeError(w, r, err, "Failed to enqueue job")
		return
	}

	log := requestLog(r)
	log.Info().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.JobID,
		"status": job.Status,
	})
}
