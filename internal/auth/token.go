package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	workerTokenType = "worker"
	issuer          = "cardfarm-broker"

	// DefaultTokenLifetime bounds how long a worker token is accepted.
	DefaultTokenLifetime = 24 * time.Hour
)

// workerClaims defines the structure of JWT claims we use
type workerClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// WorkerTokens signs and verifies worker tokens.
type WorkerTokens struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

// NewWorkerTokens creates a token service from the shared secret.
func NewWorkerTokens(secret string, lifetime time.Duration) (*WorkerTokens, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &WorkerTokens{
		signingKey: []byte(secret),
		lifetime:   lifetime,
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// Generate returns a signed token naming the worker.
func (s *WorkerTokens) Generate(workerName string) (string, error) {
	now := s.timeFunc()
	claims := workerClaims{
		TokenType: workerTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   workerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign worker token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}

// Validate checks a token and returns the worker name it was issued for.
func (s *WorkerTokens) Validate(tokenString string) (string, error) {
	now := s.timeFunc()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&workerClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*workerClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != workerTokenType {
		return "", ErrWrongTokenType
	}
	return claims.Subject, nil
}

// AuthenticateRequest validates the bearer token on r.
func (s *WorkerTokens) AuthenticateRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingToken
	}
	return s.Validate(token)
}

// AuthorizationHeader returns headers carrying a fresh token for workerName.
func (s *WorkerTokens) AuthorizationHeader(workerName string) (http.Header, error) {
	token, err := s.Generate(workerName)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}
