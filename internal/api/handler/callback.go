package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/api/response"
	"github.com/suhsaechan/tripgether/internal/jobs"
	"github.com/suhsaechan/tripgether/pkg/models"
)

const maxCallbackBody = 1 << 20

// CallbackApplier applies an AI server result to the correlated job.
type CallbackApplier interface {
	Apply(ctx context.Context, contentID uuid.UUID, jobType string, outcome jobs.Outcome) (*jobs.ApplyResult, error)
}

type callbackRequest struct {
	ContentID    uuid.UUID                   `json:"content_id"`
	ResultStatus string                      `json:"result_status"`
	ContentInfo  *models.CallbackContentInfo `json:"content_info"`
	Places       []models.CallbackPlace      `json:"places"`
	ReasonCode   string                      `json:"reason_code"`
}

type callbackResponse struct {
	Received  bool      `json:"received"`
	ContentID uuid.UUID `json:"content_id"`
	Duplicate bool      `json:"duplicate"`
}

// NewCallbackHandler returns an http.HandlerFunc for POST /api/v1/callback.
// Unknown correlations return 404 and transient apply failures return 503 so
// the AI server knows to redeliver; duplicates are acknowledged with 200.
func NewCallbackHandler(applier CallbackApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body", nil)
			return
		}

		var req callbackRequest
		if err := json.Unmarshal(body, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ContentID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content_id is required", nil)
			return
		}

		var outcome jobs.Outcome
		switch req.ResultStatus {
		case models.CallbackStatusSuccess:
			outcome = jobs.Outcome{
				Success:     true,
				Result:      body,
				ContentInfo: req.ContentInfo,
				Places:      req.Places,
			}
		case models.CallbackStatusFailed:
			outcome = jobs.Outcome{
				Success:    false,
				ReasonCode: req.ReasonCode,
			}
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"result_status must be SUCCESS or FAILED", nil)
			return
		}

		res, err := applier.Apply(r.Context(), req.ContentID, models.JobTypePlaceExtraction, outcome)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrUnknownCorrelation):
				response.Error(w, http.StatusNotFound, "CORRELATION_UNKNOWN",
					"No extraction job matches this content_id", nil)
			case errors.Is(err, jobs.ErrConflictRetriesExceeded):
				response.Error(w, http.StatusServiceUnavailable, "APPLY_CONTENTION",
					"Temporarily unable to apply callback, please redeliver", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to apply callback", nil)
			}
			return
		}

		response.JSON(w, callbackResponse{
			Received:  true,
			ContentID: req.ContentID,
			Duplicate: res.Duplicate,
		})
	}
}
