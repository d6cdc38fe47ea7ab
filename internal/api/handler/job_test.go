package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suhsaechan/tripgether/internal/api/handler"
	"github.com/suhsaechan/tripgether/pkg/models"
)

func getJobVia(h http.HandlerFunc, jobID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/v1/jobs/{jobID}", h)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPollJob_ServedFromCacheWhileInFlight(t *testing.T) {
	jobID := uuid.New()
	st := &stubStore{
		getJob: func(uuid.UUID) (*models.Job, error) {
			t.Fatal("store should not be hit when the cache has an in-flight status")
			return nil, nil
		},
	}
	c := &stubCache{status: models.JobStatusInFlight, ok: true}

	rec := getJobVia(handler.NewPollJobHandler(st, c), jobID.String())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), jobID.String())
	assert.Contains(t, rec.Body.String(), models.JobStatusInFlight)
}

func TestPollJob_TerminalJobComesFromStore(t *testing.T) {
	job := newJob(uuid.New())
	job.Status = models.JobStatusCompleted
	job.Result = []byte(`{"result_status":"SUCCESS"}`)
	st := &stubStore{
		getJob: func(id uuid.UUID) (*models.Job, error) {
			assert.Equal(t, job.ID, id)
			return job, nil
		},
	}
	// Cache mirrors the terminal status but the full row still comes from the store.
	c := &stubCache{status: models.JobStatusCompleted, ok: true}

	rec := getJobVia(handler.NewPollJobHandler(st, c), job.ID.String())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.JobStatusCompleted)
}

func TestPollJob_NotFound(t *testing.T) {
	rec := getJobVia(handler.NewPollJobHandler(&stubStore{}, &stubCache{}), uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPollJob_InvalidID(t *testing.T) {
	rec := getJobVia(handler.NewPollJobHandler(&stubStore{}, &stubCache{}), "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
