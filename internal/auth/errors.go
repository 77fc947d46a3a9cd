package auth

import "errors"

var (
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSecret is returned when issuing a token without a signing secret.
	ErrNoSecret = errors.New("jwt secret is not configured")
)
