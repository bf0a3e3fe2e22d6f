package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, "buyer@example.com", enums.MemberRoleCustomer)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, enums.MemberRoleCustomer, claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(uuid.New(), "x@example.com", enums.MemberRoleAdmin)
	require.NoError(t, err)

	other := NewTokenIssuer("different-secret", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue(uuid.New(), "x@example.com", enums.MemberRoleCustomer)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}
