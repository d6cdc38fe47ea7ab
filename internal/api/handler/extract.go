package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/api/response"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

const maxURLLength = 2048

// JobDispatcher is the dispatch entry point the handler depends on.
type JobDispatcher interface {
	Dispatch(ctx context.Context, contentID uuid.UUID, jobType string) (*models.Job, bool, error)
}

type extractResponse struct {
	ContentID     uuid.UUID  `json:"content_id"`
	ContentStatus string     `json:"content_status"`
	JobID         *uuid.UUID `json:"job_id,omitempty"`
	JobStatus     string     `json:"job_status,omitempty"`
	Attempt       int        `json:"attempt,omitempty"`
}

// NewExtractHandler returns an http.HandlerFunc for POST /api/v1/extract.
// A URL whose content is already completed is returned as-is without another
// AI round trip; anything else is (re)dispatched.
func NewExtractHandler(st store.Store, dispatcher JobDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SNSURL string `json:"sns_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.SNSURL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sns_url is required", nil)
			return
		}
		if len(req.SNSURL) > maxURLLength {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sns_url exceeds maximum length", nil)
			return
		}
		if !strings.HasPrefix(req.SNSURL, "http://") && !strings.HasPrefix(req.SNSURL, "https://") {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sns_url must be an http(s) URL", nil)
			return
		}

		ctx := r.Context()

		content, err := st.GetContentByURL(ctx, req.SNSURL)
		switch {
		case err == nil:
			if content.Status == models.ContentStatusCompleted {
				response.JSON(w, extractResponse{
					ContentID:     content.ID,
					ContentStatus: content.Status,
				})
				return
			}
			if err := st.UpdateContentStatus(ctx, content.ID, models.ContentStatusPending); err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reuse content", nil)
				return
			}
		case errors.Is(err, store.ErrNotFound):
			now := time.Now().UTC()
			content = &models.Content{
				ID:          uuid.New(),
				OriginalURL: req.SNSURL,
				Status:      models.ContentStatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if cerr := st.CreateContent(ctx, content); cerr != nil {
				if !errors.Is(cerr, store.ErrDuplicateKey) {
					response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create content", nil)
					return
				}
				// Concurrent submission of the same URL; adopt the winner.
				content, err = st.GetContentByURL(ctx, req.SNSURL)
				if err != nil {
					response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load content", nil)
					return
				}
			}
		default:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load content", nil)
			return
		}

		job, _, err := dispatcher.Dispatch(ctx, content.ID, models.JobTypePlaceExtraction)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to dispatch extraction", nil)
			return
		}

		response.Accepted(w, extractResponse{
			ContentID:     content.ID,
			ContentStatus: content.Status,
			JobID:         &job.ID,
			JobStatus:     job.Status,
			Attempt:       job.Attempt,
		})
	}
}
