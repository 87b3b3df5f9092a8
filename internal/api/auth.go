package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth guards the document management routes (/documents and
// /documents/{id}); query, upload, and health stay open. The token comes
// from REASONA_API_TOKEN, and NewHandler skips this middleware entirely
// when no token is configured.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			// Constant-time compare; token mismatch and missing header take
			// the same path.
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
