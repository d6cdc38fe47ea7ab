package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/suhsaechan/tripgether/internal/api/response"
)

// CallbackAuth authenticates webhook callbacks from the AI server via the
// shared X-API-Key header. The callback key is distinct from the key we send
// on outbound dispatches.
type CallbackAuth struct {
	key string
}

// NewCallbackAuth creates a CallbackAuth middleware around the shared key.
func NewCallbackAuth(key string) *CallbackAuth {
	return &CallbackAuth{key: key}
}

// Require rejects requests whose X-API-Key header does not match the shared
// key. Comparison is constant-time.
func (c *CallbackAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(c.key)) != 1 {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid X-API-Key header", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
