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
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/pkg/models"
)

func TestRecentContents_DefaultLimit(t *testing.T) {
	var gotLimit int
	st := &stubStore{
		listRecentContents: func(limit int) ([]*models.Content, error) {
			gotLimit = limit
			return []*models.Content{{ID: uuid.New(), OriginalURL: "https://example.com/a", Status: models.ContentStatusCompleted}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contents/recent", nil)
	rec := httptest.NewRecorder()
	handler.NewRecentContentsHandler(st)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, gotLimit)
}

func TestRecentContents_LimitClampedAndValidated(t *testing.T) {
	var gotLimit int
	st := &stubStore{
		listRecentContents: func(limit int) ([]*models.Content, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	h := handler.NewRecentContentsHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contents/recent?limit=500", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, gotLimit)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/contents/recent?limit=abc", nil)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/contents/recent?limit=0", nil)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func getContentPlacesVia(h http.HandlerFunc, contentID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/v1/contents/{contentID}/places", h)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/contents/"+contentID+"/places", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestContentPlaces_ReturnsContentAndPlaces(t *testing.T) {
	content := &models.Content{ID: uuid.New(), OriginalURL: "https://example.com/a", Status: models.ContentStatusCompleted}
	st := &stubStore{
		getContent: func(id uuid.UUID) (*models.Content, error) {
			assert.Equal(t, content.ID, id)
			return content, nil
		},
		listContentPlaces: func(uuid.UUID) ([]*models.Place, error) {
			return []*models.Place{{ID: uuid.New(), Name: "Gwangjang Market", Latitude: 37.57, Longitude: 126.999}}, nil
		},
	}

	ca := &stubCache{}
	rec := getContentPlacesVia(handler.NewContentPlacesHandler(st, ca), content.ID.String())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gwangjang Market")
	assert.Contains(t, rec.Body.String(), content.ID.String())

	// The miss populates the cache with the response payload.
	cached, ok := ca.sets[cache.ContentPlacesKey(content.ID)]
	require.True(t, ok)
	assert.Contains(t, string(cached), "Gwangjang Market")
}

func TestContentPlaces_ServedFromCache(t *testing.T) {
	contentID := uuid.New()
	st := &stubStore{
		getContent: func(uuid.UUID) (*models.Content, error) {
			t.Fatal("store must not be hit on a cache hit")
			return nil, nil
		},
	}
	ca := &stubCache{data: map[string][]byte{
		cache.ContentPlacesKey(contentID): []byte(`{"content":null,"places":[{"name":"Gwangjang Market"}]}`),
	}}

	rec := getContentPlacesVia(handler.NewContentPlacesHandler(st, ca), contentID.String())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gwangjang Market")
}

func TestContentPlaces_NotFound(t *testing.T) {
	rec := getContentPlacesVia(handler.NewContentPlacesHandler(&stubStore{}, &stubCache{}), uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentPlaces_InvalidID(t *testing.T) {
	rec := getContentPlacesVia(handler.NewContentPlacesHandler(&stubStore{}, &stubCache{}), "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
