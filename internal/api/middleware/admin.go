package middleware

import (
	"crypto/subtle"
	"net/http"
)

// adminSecretHeader carries the shared secret for admin endpoints.
const adminSecretHeader = "X-Admin-Secret"

// AdminSecret creates middleware that gates admin endpoints behind a shared
// secret header. An empty configured secret locks the endpoints entirely
// rather than leaving them open.
func AdminSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeUnauthorized(w, r, "admin endpoints are not enabled")
				return
			}

			provided := r.Header.Get(adminSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				writeUnauthorized(w, r, "missing or invalid admin secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
