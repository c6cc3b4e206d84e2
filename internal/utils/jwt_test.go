package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/model"
)

func TestNewAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "egg_user", model.GradeEgg, 24)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "egg_user", claims["sub"])
	assert.Equal(t, float64(42), claims["mid"])
	assert.Equal(t, "EGG", claims["grade"])
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), at.Exp, time.Minute)
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	at, err := NewAccessToken("secret-a", 1, "user", model.GradeChick, 1)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	r1, err := NewRefreshToken(7)
	require.NoError(t, err)
	r2, err := NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, r1.Raw, 96)
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), r1.Exp, time.Minute)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("token-a")
	h2 := HashRefreshRaw("token-a")
	h3 := HashRefreshRaw("token-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Secret1!", 4) // low cost keeps the test fast
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Secret1!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestCallContext(t *testing.T) {
	cc := NewCallContext()
	assert.NotEmpty(t, cc.CorrelationID)
	assert.False(t, cc.IsAdmin())

	cc.ActorGrade = "ROOSTER"
	assert.True(t, cc.IsAdmin())
}
