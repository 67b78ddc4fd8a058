package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuth guards administrative routes with a shared token. The token may
// be sent as "Authorization: Bearer <token>" or in the X-API-Key header.
// An empty token rejects every request.
func AdminAuth(token string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeAuthError(w, "missing api key")
				return
			}
			got := sha256.Sum256([]byte(key))
			if token == "" || subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
				writeAuthError(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads the key from the Authorization bearer header, falling
// back to X-API-Key.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-API-Key")
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
