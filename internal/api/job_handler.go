package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
)

// JobDirectory exposes the scheduler's read and cancel surface.
// Implemented by scheduler.Scheduler.
type JobDirectory interface {
	GetAll() []scheduler.Job
	GetBySubject(subjectID uuid.UUID) []scheduler.Job
	Cancel(jobID uuid.UUID) error
	Stats() scheduler.Stats
}

// JobHandler handles job listing, inspection, and cancellation.
type JobHandler struct {
	jobs   JobDirectory
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobDirectory, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "job_handler")),
	}
}

// ListJobs handles GET /jobs. An optional video_id query parameter
// filters by subject. Jobs are most recently submitted first.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("video_id"); raw != "" {
		videoID, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid video_id")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, jobsToResponse(h.jobs.GetBySubject(videoID)))
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobsToResponse(h.jobs.GetAll()))
}

// GetJob handles GET /jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	for _, j := range h.jobs.GetAll() {
		if j.ID == id {
			shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(j))
			return
		}
	}
	shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
}

// CancelJob handles DELETE /jobs/{id}. Cancelling an already terminal
// job succeeds without effect.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.jobs.Cancel(id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("job cancellation requested", "job_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /jobs/stats.
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.jobs.Stats())
}
