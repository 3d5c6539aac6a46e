package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

func TestNewWorkerTokens(t *testing.T) {
	_, err := NewWorkerTokens("short", time.Hour)
	assert.ErrorIs(t, err, ErrShortSecret)

	s, err := NewWorkerTokens(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenLifetime, s.lifetime)
}

func TestGenerateAndValidate(t *testing.T) {
	s, err := NewWorkerTokens(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := s.Generate("render-1")
	require.NoError(t, err)

	name, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "render-1", name)
}

func TestValidateFailures(t *testing.T) {
	s, err := NewWorkerTokens(testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-3 * time.Hour)
		s.timeFunc = func() time.Time { return past }
		token, err := s.Generate("w")
		require.NoError(t, err)
		s.timeFunc = time.Now

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewWorkerTokens("a-different-secret-that-is-32-chars!", time.Hour)
		require.NoError(t, err)
		token, err := other.Generate("w")
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := workerClaims{
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "w",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticateRequest(t *testing.T) {
	s, err := NewWorkerTokens(testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/workers/connect", nil)
	_, err = s.AuthenticateRequest(req)
	assert.ErrorIs(t, err, ErrMissingToken)

	header, err := s.AuthorizationHeader("render-2")
	require.NoError(t, err)
	req.Header = header

	name, err := s.AuthenticateRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "render-2", name)
}
