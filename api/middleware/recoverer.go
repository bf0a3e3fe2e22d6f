package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lamnguyendev/keymart-backend/api/responses"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
)

// Recoverer converts panics into 500 responses instead of dropping the
// connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).
					WithField("stack", string(debug.Stack())).
					Error(fmt.Errorf("%v", rec), "panic recovered")
				responses.WriteError(w, r, errors.New(errors.CodeInternal, "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
