package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reelwork/marketplace/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID ensures each request has an ID in context and response headers.
// Client-supplied ids longer than 128 bytes are replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
