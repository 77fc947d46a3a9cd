package auth

import "time"

// Claims describes the validated identity extracted from an access token.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}
