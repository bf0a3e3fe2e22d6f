package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

type identityKey struct{}

// Identity is the authenticated actor extracted from the bearer token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   enums.MemberRole
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
