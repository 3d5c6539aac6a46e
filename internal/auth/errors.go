package auth

import "errors"

var (
	// ErrInvalidToken is returned when a token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrWrongTokenType is returned when a token was not issued for a worker.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrShortSecret is returned when the shared secret is too short.
	ErrShortSecret = errors.New("shared secret must be at least 32 characters")
)
