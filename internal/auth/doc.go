// Package auth issues and validates the tokens workers present when they
// connect to the broker. Tokens are HMAC-SHA256 signed JWTs derived from a
// secret shared by the broker and its workers.
package auth
