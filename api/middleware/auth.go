package middleware

import (
	"net/http"
	"strings"

	"github.com/lamnguyendev/keymart-backend/api/responses"
	"github.com/lamnguyendev/keymart-backend/pkg/auth"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
)

// Auth verifies the bearer token and stores the caller's identity in the
// request context.
func Auth(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				responses.WriteError(w, r, errors.New(errors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				responses.WriteError(w, r, errors.Wrap(errors.CodeUnauthorized, err, "invalid token"))
				return
			}

			identity := Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			}

			ctx := withIdentity(r.Context(), identity)
			ctx = logger.FromContext(ctx).WithField("user_id", identity.UserID).Attach(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to the given roles. Must run after Auth.
func RequireRole(roles ...enums.MemberRole) func(http.Handler) http.Handler {
	allowed := map[enums.MemberRole]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				responses.WriteError(w, r, errors.New(errors.CodeUnauthorized, "authentication required"))
				return
			}
			if !allowed[identity.Role] {
				responses.WriteError(w, r, errors.New(errors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
