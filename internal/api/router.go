package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mw "github.com/suhsaechan/tripgether/internal/api/middleware"
	"github.com/suhsaechan/tripgether/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth         *mw.Auth
	CallbackAuth *mw.CallbackAuth
	RateLimit    *mw.RateLimit

	HealthHandler         http.HandlerFunc
	ExtractHandler        http.HandlerFunc
	PollJobHandler        http.HandlerFunc
	RecentContentsHandler http.HandlerFunc
	ContentPlacesHandler  http.HandlerFunc
	CallbackHandler       http.HandlerFunc
	CreateKeyHandler      http.HandlerFunc
	ListKeysHandler       http.HandlerFunc
	RevokeKeyHandler      http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check and Prometheus scrape endpoint
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Handle("/metrics", promhttp.Handler())

	// AI server webhook, authenticated by the shared callback key
	r.Group(func(r chi.Router) {
		r.Use(deps.CallbackAuth.Require)

		r.Post("/api/v1/callback", orNotImplemented(deps.CallbackHandler))
	})

	// Client routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/extract", orNotImplemented(deps.ExtractHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.PollJobHandler))

		r.Get("/api/v1/contents/recent", orNotImplemented(deps.RecentContentsHandler))
		r.Get("/api/v1/contents/{contentID}/places", orNotImplemented(deps.ContentPlacesHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
