package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return Identity{ID: uuid.New(), Email: "owner@shop.example", DisplayName: "Owner"}
}

func TestCreateToken_AndValidateToken(t *testing.T) {
	identity := testIdentity()

	token, err := CreateToken(identity, "test-secret", 7)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, identity.ID, claims.UserID)
	require.Equal(t, identity.ID.String(), claims.Subject)
	require.Equal(t, identity, claims.Identity())
	require.NotNil(t, claims.ExpiresAt)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := CreateToken(testIdentity(), "secret-a", 7)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret-b")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := CreateToken(testIdentity(), "secret", -1)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	require.Error(t, err)
}
