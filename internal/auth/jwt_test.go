package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret, sub string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidate(t *testing.T) {
	v := NewValidator("s3cret")

	uid, err := v.Validate(signed(t, "s3cret", "user-1", jwt.SigningMethodHS256))
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	_, err = v.Validate(signed(t, "wrong", "user-1", jwt.SigningMethodHS256))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(signed(t, "s3cret", "", jwt.SigningMethodHS256))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
