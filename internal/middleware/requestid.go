package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID assigns every request an X-Request-ID when the client did not
// send one, and echoes it on the response so error payloads can be correlated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
