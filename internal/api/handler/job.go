package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/api/response"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

type jobStatusResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// NewPollJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// While a job is in flight pollers are served from the Redis status mirror and
// skip the database; terminal jobs return the full row including the result.
func NewPollJobHandler(st store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
			return
		}

		if status, ok, cerr := c.GetJobStatus(r.Context(), jobID); cerr == nil && ok {
			if status == models.JobStatusPending || status == models.JobStatusInFlight {
				response.JSON(w, jobStatusResponse{ID: jobID, Status: status})
				return
			}
		}

		job, err := st.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}

		response.JSON(w, job)
	}
}
