package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/suhsaechan/tripgether/internal/api/response"
	"github.com/suhsaechan/tripgether/internal/cache"
	"github.com/suhsaechan/tripgether/internal/store"
	"github.com/suhsaechan/tripgether/pkg/models"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100

	placesCacheTTL = 5 * time.Minute
)

// NewRecentContentsHandler returns an http.HandlerFunc for GET /api/v1/contents/recent.
func NewRecentContentsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecentLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			if n > maxRecentLimit {
				n = maxRecentLimit
			}
			limit = n
		}

		contents, err := st.ListRecentContents(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contents", nil)
			return
		}

		response.JSON(w, contents)
	}
}

type contentPlacesResponse struct {
	Content *models.Content `json:"content"`
	Places  []*models.Place `json:"places"`
}

// NewContentPlacesHandler returns an http.HandlerFunc for
// GET /api/v1/contents/{contentID}/places. Responses are cached in redis and
// invalidated when a callback replaces the linked places.
func NewContentPlacesHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, err := uuid.Parse(chi.URLParam(r, "contentID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid content ID", nil)
			return
		}

		if cached, ok, err := ca.Get(r.Context(), cache.ContentPlacesKey(contentID)); err == nil && ok {
			response.JSON(w, json.RawMessage(cached))
			return
		}

		content, err := st.GetContent(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Content not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load content", nil)
			return
		}

		places, err := st.ListContentPlaces(r.Context(), contentID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load places", nil)
			return
		}

		resp := contentPlacesResponse{Content: content, Places: places}
		if encoded, err := json.Marshal(resp); err == nil {
			_ = ca.Set(r.Context(), cache.ContentPlacesKey(contentID), encoded, placesCacheTTL)
		}

		response.JSON(w, resp)
	}
}
