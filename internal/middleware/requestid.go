package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/benvon/tripflow/internal/request"
)

const maxRequestIDLength = 128

// RequestID propagates the caller's X-Request-ID or assigns a new one, and echoes it on the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(request.RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(request.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(request.WithID(r.Context(), id)))
	})
}
