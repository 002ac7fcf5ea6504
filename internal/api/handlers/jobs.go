package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/jobs"
)

// JobsHandler reports extraction job status.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, &h.log, err, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SessionID: query.Get("session_id"),
		Status:    jobs.JobStatus(query.Get("status")),
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, &h.log, err, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ExtractionJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": list, "count": len(list)})
}
