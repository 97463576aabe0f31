package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("user-1", "operator", "secret", "hub_bridge", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "hub_bridge", claims.Issuer)

	_, err = ValidateToken(token, "other")
	assert.Error(t, err)
}

func TestValidateToken_SubjectFallback(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := ValidateToken(signed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.UserID)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-3"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, "secret")
	assert.Error(t, err)
}

func TestGenerateToken_RequiresUser(t *testing.T) {
	_, err := GenerateToken("", "", "secret", "hub_bridge", time.Hour)
	assert.Error(t, err)
}
