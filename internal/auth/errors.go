package auth

import "errors"

// Authentication and authorization failures. Handlers map these onto
// HTTP status codes; anything else is treated as an internal error.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")
	ErrMalformedToken     = errors.New("malformed token")
)
