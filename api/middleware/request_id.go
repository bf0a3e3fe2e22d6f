package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags every request with an id, honoring one supplied by the
// caller, and binds it to the request logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := logger.FromContext(r.Context()).WithField("request_id", id)
		next.ServeHTTP(w, r.WithContext(log.Attach(r.Context())))
	})
}
