package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/abduss/homelist/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const audience = "homelist-api"

// Service issues and verifies HS256 bearer tokens for the write API.
type Service struct {
	cfg     config.AuthConfig
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewService creates a Service from auth settings.
func NewService(cfg config.AuthConfig) *Service {
	s := &Service{cfg: cfg, nowFunc: time.Now}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	return s
}

// IssueAccessToken signs a token for subject. A non-positive ttl selects the configured TTL.
func (s *Service) IssueAccessToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if s.cfg.JWTSecret == "" {
		return "", time.Time{}, ErrNoSecret
	}
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty subject")
	}
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}

	now := s.nowFunc()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the token signature and extracts its claims.
func (s *Service) ValidateAccessToken(tokenString string) (Claims, error) {
	if s.cfg.JWTSecret == "" || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrUnauthorized
	}

	var claims jwt.RegisteredClaims
	parsed, err := s.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrUnauthorized
	}
	if claims.Subject == "" {
		return Claims{}, ErrUnauthorized
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return Claims{}, ErrUnauthorized
	}

	out := Claims{Subject: claims.Subject, Issuer: claims.Issuer}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
